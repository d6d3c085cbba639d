//go:build js

package export

import (
	"errors"

	"github.com/ttu-dot/fitanalysis"
)

// ErrParquetUnsupported is returned where Parquet output is not built in.
var ErrParquetUnsupported = errors.New("parquet output is not supported on this platform")

func MarshalRecordsParquet(*fitanalysis.Activity, string) ([]byte, error) {
	return nil, ErrParquetUnsupported
}

func WriteRecordsParquet(string, *fitanalysis.Activity, string) error {
	return ErrParquetUnsupported
}
