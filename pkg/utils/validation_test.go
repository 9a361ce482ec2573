package utils

import (
	"testing"

	pkgerrors "chatarchive/pkg/errors"

	"github.com/stretchr/testify/assert"
)

type linkRequest struct {
	SourceID string   `validate:"required"`
	TargetID string   `validate:"required,nefield=SourceID"`
	Tags     []string `validate:"max=2,dive,min=1"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   linkRequest
		wantErr string
	}{
		{name: "valid", input: linkRequest{SourceID: "a", TargetID: "b"}},
		{name: "missing source", input: linkRequest{TargetID: "b"}, wantErr: "sourceid is required"},
		{name: "self link", input: linkRequest{SourceID: "a", TargetID: "a"}, wantErr: "targetid must differ from sourceid"},
		{name: "too many tags", input: linkRequest{SourceID: "a", TargetID: "b", Tags: []string{"x", "y", "z"}}, wantErr: "tags must be at most 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
