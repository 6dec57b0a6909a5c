package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationResult(t *testing.T) {
	tests := []struct {
		name        string
		result      OperationResult[string, error]
		wantSuccess bool
		wantFailure bool
	}{
		{
			name:        "success",
			result:      SuccessResult[string, error]("ok"),
			wantSuccess: true,
		},
		{
			name:        "failure",
			result:      FailureResult[string, error](errors.New("nope")),
			wantFailure: true,
		},
		{
			name:   "empty",
			result: OperationResult[string, error]{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSuccess, tt.result.IsSuccess())
			assert.Equal(t, tt.wantFailure, tt.result.IsFailure())
		})
	}
}
