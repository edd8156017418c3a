// Package mapper converts between entities and repository models.
package mapper

import (
	"github.com/replbridge/replbridge/src/bridge/entity"
	"github.com/replbridge/replbridge/src/bridge/model"
)

// PendingEvalToModel maps a PendingEval entity to its model equivalent.
func PendingEvalToModel(p *entity.PendingEval) *model.PendingEval {
	chunks := make([]model.OutputChunk, 0, len(p.Chunks))
	for _, c := range p.Chunks {
		chunks = append(chunks, model.OutputChunk{Kind: string(c.Kind), Text: c.Text})
	}
	return &model.PendingEval{
		UUID:      p.Request.UUID,
		ID:        p.Request.ID,
		Code:      p.Request.Code,
		File:      p.Request.File,
		Line:      p.Request.Line,
		Column:    p.Request.Column,
		Seq:       p.Seq,
		Chunks:    chunks,
		Value:     p.Value,
		Namespace: p.Namespace,
		Exception: p.Exception,
	}
}

// ModelToPendingEval maps a model PendingEval to its entity equivalent.
func ModelToPendingEval(m *model.PendingEval) (*entity.PendingEval, error) {
	chunks := make([]entity.OutputChunk, 0, len(m.Chunks))
	for _, c := range m.Chunks {
		chunks = append(chunks, entity.OutputChunk{Kind: entity.FragmentKind(c.Kind), Text: c.Text})
	}
	return &entity.PendingEval{
		Request: entity.Request{
			UUID:   m.UUID,
			ID:     m.ID,
			Kind:   entity.RequestEval,
			Code:   m.Code,
			File:   m.File,
			Line:   m.Line,
			Column: m.Column,
		},
		Seq:       m.Seq,
		Chunks:    chunks,
		Value:     m.Value,
		Namespace: m.Namespace,
		Exception: m.Exception,
	}, nil
}

// RequestToPendingEval initializes a fresh accumulator for an eval request.
func RequestToPendingEval(req *entity.Request, seq uint64) *entity.PendingEval {
	return &entity.PendingEval{
		Request: *req,
		Seq:     seq,
	}
}
