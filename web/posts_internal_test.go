package web

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormImage(t *testing.T) {
	t.Parallel()

	t.Run("uploaded", func(t *testing.T) {
		t.Parallel()

		var body bytes.Buffer

		mw := multipart.NewWriter(&body)

		part, err := mw.CreateFormFile("image", "cat.png")
		require.NoError(t, err)

		_, err = part.Write([]byte("png bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/submit", &body)
		r.Header.Set("Content-Type", mw.FormDataContentType())

		file, header, err := formImage(r)
		require.NoError(t, err)
		require.NotNil(t, file)

		defer func() {
			_ = file.Close()
		}()

		assert.Equal(t, "cat.png", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "png bytes", string(content))
	})

	t.Run("no image field", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/submit", nil)
		r.MultipartForm = &multipart.Form{File: map[string][]*multipart.FileHeader{}}

		file, header, err := formImage(r)
		require.NoError(t, err)
		assert.Nil(t, file)
		assert.Nil(t, header)
	})

	t.Run("unreadable upload", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/submit", nil)
		r.MultipartForm = &multipart.Form{File: map[string][]*multipart.FileHeader{
			"image": {{Filename: "cat.png", Size: 9}},
		}}

		file, _, err := formImage(r)
		require.Error(t, err)
		require.NotErrorIs(t, err, http.ErrMissingFile)
		assert.Nil(t, file)
	})
}
