// Package codec serializes ride query results for cache storage.
//
// List snapshots are JSON encoded and zlib compressed; point-lookup
// snapshots are stored as plain JSON. Decoded values stay loosely typed
// (maps and JSON scalars); timestamps come back as RFC 3339 strings, not
// time.Time.
package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeError reports cached bytes that could not be decoded (truncated
// stream, bad zlib header, malformed JSON). The cache layer treats it as a
// miss rather than a request failure.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: decode cached value: %v", e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// Encode serializes v to JSON and compresses the result with zlib.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("codec: compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decompresses data and parses the JSON into a loosely-typed value.
// Malformed input returns a *DecodeError.
func Decode(data []byte) (any, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{cause: err}
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{cause: err}
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &DecodeError{cause: err}
	}
	return v, nil
}

// EncodeRaw serializes v to plain uncompressed JSON. Point-lookup cache
// entries use this form.
func EncodeRaw(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: marshal: %w", err)
	}
	return raw, nil
}

// DecodeRaw parses plain JSON into a loosely-typed value. Malformed input
// returns a *DecodeError.
func DecodeRaw(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &DecodeError{cause: err}
	}
	return v, nil
}
