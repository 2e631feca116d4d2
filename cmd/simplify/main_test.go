package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
)

type simplifierStub struct {
	source    string
	input     string
	maxLength int
}

func (s *simplifierStub) result(input string, maxLength int) *domain.SimplificationResult {
	s.input = input
	s.maxLength = maxLength
	res := domain.NewSimplificationResult(input, "Plain words.", 2340*time.Millisecond, false, "m")
	return &res
}

func (s *simplifierStub) SimplifyText(_ context.Context, text string, maxLength int) (*domain.SimplificationResult, error) {
	s.source = "text"
	return s.result(text, maxLength), nil
}

func (s *simplifierStub) SimplifyUpload(_ context.Context, filename string, _ io.Reader, maxLength int) (*domain.SimplificationResult, error) {
	s.source = "upload"
	return s.result(filename, maxLength), nil
}

func (s *simplifierStub) SimplifyFile(_ context.Context, path string, maxLength int) (*domain.SimplificationResult, error) {
	s.source = "file"
	return s.result(path, maxLength), nil
}

type statusStub struct {
	err error
}

func (s statusStub) Check(context.Context) (*domain.EndpointStatus, error) {
	return &domain.EndpointStatus{Endpoint: "http://localhost:11434", Model: "m", Connected: true, ModelAvailable: s.err == nil}, s.err
}

func TestParseOptions(t *testing.T) {
	var out bytes.Buffer
	opts, err := parseOptions([]string{"-file", "guide.pdf", "-json"}, &out, 4000)
	require.NoError(t, err)
	assert.Equal(t, "guide.pdf", opts.file)
	assert.Equal(t, 4000, opts.maxLength)
	assert.True(t, opts.jsonOutput)

	_, err = parseOptions([]string{"-max-length", "0"}, &out, 4000)
	require.Error(t, err)

	_, err = parseOptions([]string{"stray"}, &out, 4000)
	require.Error(t, err)

	_, err = parseOptions([]string{"-h"}, &out, 4000)
	require.ErrorIs(t, err, flag.ErrHelp)
}

func TestRunPrintsResultAndStatistics(t *testing.T) {
	stub := &simplifierStub{}
	var out bytes.Buffer
	opts := options{text: "Some technical paragraph.", maxLength: 4000}

	require.NoError(t, run(context.Background(), opts, services{simplifier: stub, status: statusStub{}}, nil, &out))
	assert.Equal(t, "text", stub.source)
	assert.Contains(t, out.String(), "Plain words.")
	assert.Contains(t, out.String(), "Time taken:        2.34 seconds")
	assert.Contains(t, out.String(), "Original length:   25 characters")
	assert.Contains(t, out.String(), "Simplified length: 12 characters")
}

func TestRunFileWinsAndReadsStdinOtherwise(t *testing.T) {
	stub := &simplifierStub{}
	svc := services{simplifier: stub, status: statusStub{}}

	require.NoError(t, run(context.Background(), options{file: "a.docx", text: "ignored", maxLength: 10}, svc, nil, io.Discard))
	assert.Equal(t, "file", stub.source)
	assert.Equal(t, "a.docx", stub.input)

	require.NoError(t, run(context.Background(), options{maxLength: 10}, svc, strings.NewReader("from stdin"), io.Discard))
	assert.Equal(t, "text", stub.source)
	assert.Equal(t, "from stdin", stub.input)
}

func TestRunJSONOutput(t *testing.T) {
	var out bytes.Buffer
	svc := services{simplifier: &simplifierStub{}, status: statusStub{}}
	require.NoError(t, run(context.Background(), options{text: "Some technical paragraph.", maxLength: 10, jsonOutput: true}, svc, nil, &out))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &payload))
	assert.Equal(t, "Plain words.", payload["simplified"])
	assert.EqualValues(t, 25, payload["original_length"])
}

func TestRunStopsWhenEndpointNotReady(t *testing.T) {
	stub := &simplifierStub{}
	notReady := domain.WrapError(domain.ErrModelNotFound, "check model", errors.New("missing"))
	err := run(context.Background(), options{text: "Some technical paragraph.", maxLength: 10}, services{simplifier: stub, status: statusStub{err: notReady}}, nil, io.Discard)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrModelNotFound))
	assert.Empty(t, stub.source)
}

func TestRunCheckOnly(t *testing.T) {
	stub := &simplifierStub{}
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{check: true}, services{simplifier: stub, status: statusStub{}}, nil, &out))
	assert.Equal(t, "Connected to http://localhost:11434, model m is available\n", out.String())
	assert.Empty(t, stub.source)
}

func TestPreviewCutsOnRunes(t *testing.T) {
	assert.Equal(t, "héllo", preview("héllo", 10))
	assert.Equal(t, "hé", preview("héllo", 2))
}
