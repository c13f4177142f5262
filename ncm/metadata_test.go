package ncm_test

import (
	"encoding/json"
	"testing"

	"github.com/slipstream/w4dj/ncm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantExt string
		wantErr bool
	}{
		{name: "mp3", doc: `{"format":"mp3"}`, wantExt: "mp3"},
		{name: "upper case flac", doc: `{"musicName":"x","format":"FLAC","bitrate":999000}`, wantExt: "flac"},
		{name: "missing format", doc: `{"musicName":"x"}`, wantErr: true},
		{name: "empty format", doc: `{"format":""}`, wantErr: true},
		{name: "numeric format", doc: `{"format":3}`, wantErr: true},
		{name: "path in format", doc: `{"format":"../mp3"}`, wantErr: true},
		{name: "array", doc: `["format"]`, wantErr: true},
		{name: "null", doc: `null`, wantErr: true},
		{name: "not json", doc: `format=mp3`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := ncm.ParseMetadata([]byte(tt.doc))

			if tt.wantErr {
				assert.ErrorIs(t, err, ncm.ErrMetadata)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantExt, meta.Extension())
				assert.Equal(t, tt.doc, string(meta.Raw))
			}
		})
	}
}

func TestMetadataKeepsOtherFields(t *testing.T) {
	doc := `{"musicId":1,"artist":[["a",2]],"format":"flac","alias":[]}`

	meta, err := ncm.ParseMetadata([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "flac", meta.Format)
	assert.Len(t, meta.Fields, 3)
	assert.JSONEq(t, `[["a",2]]`, string(meta.Fields["artist"]))

	out, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
}
