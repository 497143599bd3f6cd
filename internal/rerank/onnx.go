//go:build cgo
// +build cgo

// ONNX-based cross-encoder (requires CGO and the onnxruntime library).

package rerank

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXReranker runs a cross-encoder relevance model with ONNX Runtime.
// The model takes one (query, passage) pair per run and outputs a single
// relevance logit.
type ONNXReranker struct {
	session   *ort.AdvancedSession
	maxTokens int
	tokenizer pairTokenizer
	// Pre-allocated tensors for Run(); input data is overwritten per pair.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXReranker creates a reranker session for the model at modelPath.
// InitializeEnvironment is called if not already done.
func NewONNXReranker(modelPath string, maxTokens int) (*ONNXReranker, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}

	tokenizer := pairTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", "", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, 1), make([]float32, 1))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXReranker{
		session:             session,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Score runs the cross-encoder once per (query, text) pair, in order.
func (r *ONNXReranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scores := make([]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inputIDs, attentionMask, tokenTypeIDs := r.tokenizer.Tokenize(query, text, r.maxTokens)
		copy(r.inputIDsTensor.GetData(), inputIDs)
		copy(r.attentionMaskTensor.GetData(), attentionMask)
		copy(r.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

		if err := r.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}
		scores[i] = float64(r.outputTensor.GetData()[0])
	}
	return scores, nil
}

// Close destroys the session and tensors.
func (r *ONNXReranker) Close() error {
	var err error
	if r.session != nil {
		err = r.session.Destroy()
		r.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{r.inputIDsTensor, r.attentionMaskTensor, r.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	r.inputIDsTensor, r.attentionMaskTensor, r.tokenTypeIDsTensor = nil, nil, nil
	if r.outputTensor != nil {
		_ = r.outputTensor.Destroy()
		r.outputTensor = nil
	}
	return err
}
