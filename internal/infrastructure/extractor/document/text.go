package document

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

func extractText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("text file is not valid utf-8: %s", path)
	}
	return strings.TrimSpace(newlineReplacer.Replace(string(raw))), nil
}

// newlineReplacer folds Windows and classic Mac line endings into "\n".
var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
