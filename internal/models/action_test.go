package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDetails(t *testing.T) {
	tests := []struct {
		name    string
		details any
		want    string
	}{
		{
			name:    "photo uploaded",
			details: PhotoUploadedDetails{FileID: "file123", PhotoID: 7},
			want:    `{"file_id":"file123","photo_id":7}`,
		},
		{
			name:    "subscription activated",
			details: SubscriptionChangedDetails{DurationDays: 30, NewStatus: true},
			want:    `{"duration_days":30,"new_status":true}`,
		},
		{
			name:    "map keys are sorted",
			details: map[string]any{"b": 1, "a": "x"},
			want:    `{"a":"x","b":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeDetails(tt.details)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDetails_Unsupported(t *testing.T) {
	_, err := EncodeDetails(make(chan int))
	assert.Error(t, err)
}
