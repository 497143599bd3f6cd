//go:build !cgo
// +build !cgo

package rerank

import (
	"context"
	"errors"
)

// ONNXReranker stub type when built without CGO (see onnx.go for the real
// implementation). It still satisfies Reranker so callers assign it without
// build-tag awareness.
type ONNXReranker struct{}

var _ Reranker = (*ONNXReranker)(nil)

// NewONNXReranker returns an error when built without CGO (ONNX not available).
func NewONNXReranker(_ string, _ int) (*ONNXReranker, error) {
	return nil, errors.New("ONNX reranker requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (r *ONNXReranker) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("ONNX reranker not available in this build")
}

func (r *ONNXReranker) Close() error { return nil }
