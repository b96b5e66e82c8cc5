package request

import (
	"errors"
	"io"
	"net/http"
)

// MaxBodySize caps request bodies; census batches are small enough that a few
// megabytes is generous.
const MaxBodySize = 8 << 20

var ErrEmptyBody = errors.New("request: empty body")

// Body reads the whole request body with the size cap applied.
func Body(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	return data, nil
}
