package validate

import (
	"fmt"

	"mailcannon/internal"
)

// BatchRejectedError carries every validation error of a rejected batch.
type BatchRejectedError struct {
	Errors []internal.ValidationError
}

func (e *BatchRejectedError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s), fix the orders file and retry", len(e.Errors))
}

// Gate is all-or-nothing: a single invalid row rejects the whole batch.
func Gate(res Result) ([]internal.OrderRow, error) {
	if !res.Valid() {
		return nil, &BatchRejectedError{Errors: res.Errors}
	}
	return res.Rows, nil
}
