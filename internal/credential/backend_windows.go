//go:build windows

package credential

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

// dpapiBackend unwraps blobs with CryptUnprotectData
type dpapiBackend struct{}

func platformBackend() Backend {
	return dpapiBackend{}
}

func (dpapiBackend) Name() string { return "dpapi" }

func (dpapiBackend) Unwrap(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob", model.ErrDecrypt)
	}
	in := windows.DataBlob{Size: uint32(len(blob)), Data: &blob[0]}
	var out windows.DataBlob
	if err := windows.CryptUnprotectData(&in, nil, nil, 0, nil, 0, &out); err != nil {
		return nil, fmt.Errorf("%w: CryptUnprotectData: %w", model.ErrDecrypt, err)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	return append([]byte(nil), unsafe.Slice(out.Data, out.Size)...), nil
}
