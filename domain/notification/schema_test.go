package notification

import (
	"testing"

	apperrors "github.com/miniquinox/billsync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotifyRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    WaitlistRecord
		wantErr string
	}{
		{
			name: "plain record",
			body: `{"record":{"name":"Ada","email":"ada@example.com","company":"Engines"}}`,
			want: WaitlistRecord{Name: "Ada", Email: "ada@example.com", Company: "Engines"},
		},
		{
			name: "database webhook envelope",
			body: `{"type":"INSERT","table":"waitlist","schema":"public","old_record":null,` +
				`"record":{"id":3,"name":"Ada","email":"ada@example.com","company":"Engines","created_at":"2026-01-01T00:00:00Z"}}`,
			want: WaitlistRecord{Name: "Ada", Email: "ada@example.com", Company: "Engines"},
		},
		{
			name:    "empty body",
			body:    ``,
			wantErr: "request body is empty",
		},
		{
			name:    "not json",
			body:    `name=Ada`,
			wantErr: "request body is not valid JSON",
		},
		{
			name:    "missing record",
			body:    `{"name":"Ada"}`,
			wantErr: "invalid notification payload",
		},
		{
			name:    "missing company",
			body:    `{"record":{"name":"Ada","email":"ada@example.com"}}`,
			wantErr: "company",
		},
		{
			name:    "wrong type",
			body:    `{"record":{"name":42,"email":"ada@example.com","company":"Engines"}}`,
			wantErr: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseNotifyRequest([]byte(tt.body))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidRequest))
				assert.Contains(t, apperrors.CallerMessage(err), tt.wantErr)
				assert.Nil(t, req)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Record)
		})
	}
}
