package common

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// InvokeCloser closes closer, logging rather than returning any error.
func InvokeCloser(closer io.Closer) {
	if closer != nil {
		err := closer.Close()
		if err != nil {
			log.Warnf("failed to close closer %v", err)
		}
	}
}

func CopyByteSlice(buff []byte) []byte {
	if buff == nil {
		return nil
	}
	res := make([]byte, len(buff))
	copy(res, buff)
	return res
}
