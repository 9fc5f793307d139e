package logger

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ErrServiceNameIsEmpty is returned if Log.ServiceName was not defined.
var ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")

// ErrorHandler implements a custom zerolog error handler.
func ErrorHandler(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "zerolog: could not write event: %v\n", err)
}
