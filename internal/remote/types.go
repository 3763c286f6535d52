package remote

import (
	"encoding/base64"
	"strings"
)

// File is a normalized remote file record. RevisionToken is the
// provider-assigned version identifier (the content SHA on both dialects)
// used as an optimistic-concurrency guard on writes; it is empty only in
// listings that omit it.
type File struct {
	Path          string
	Name          string
	RevisionToken string
	Content       []byte
	Size          int64
}

// contentResponse mirrors the contents-API JSON of both providers, which
// share the GitHub v3 shape. Unexported — callers get File via toFile().
type contentResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// writeResponse is the body returned by create/update calls. Only the
// nested content record matters: it carries the new revision token.
type writeResponse struct {
	Content *contentResponse `json:"content"`
}

// toFile normalizes a contents-API record. Base64 content is decoded as
// raw bytes, so multi-byte UTF-8 text survives losslessly; both providers
// wrap the payload across lines, hence the whitespace strip first.
func (r *contentResponse) toFile() (*File, error) {
	f := &File{
		Path:          r.Path,
		Name:          r.Name,
		RevisionToken: r.SHA,
		Size:          r.Size,
	}

	if r.Content == "" {
		return f, nil
	}

	compact := strings.Map(dropSpace, r.Content)

	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		// Gitee occasionally omits padding.
		decoded, err = base64.RawStdEncoding.DecodeString(compact)
		if err != nil {
			return nil, err
		}
	}

	f.Content = decoded

	return f, nil
}

func dropSpace(r rune) rune {
	switch r {
	case '\n', '\r', ' ', '\t':
		return -1
	default:
		return r
	}
}
