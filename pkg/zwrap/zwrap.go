// Package zwrap takes a file pointer and optionally wraps it so upon
// calling Close, the decompressor will be closed, followed by the
// underlying file.
// Proteomes and ortholog tables are often shipped gzipped. We look at
// the magic number rather than trusting a ".gz" suffix.

package zwrap

import (
	"compress/gzip"
	"errors"
	"io"
)

type FpGzip struct { // This is what we return.
	fp   io.ReadCloser
	zrdr *gzip.Reader
}

// Close closes the decompressor, then the underlying backing readCloser.
func (fc *FpGzip) Close() error {
	if fc.zrdr == nil {
		return fc.fp.Close()
	}
	return errors.Join(fc.zrdr.Close(), fc.fp.Close())
}

// Read makes sure we read from the compressed stream and
// not the underlying file stream.
func (fc *FpGzip) Read(p []byte) (int, error) {
	if fc.zrdr != nil {
		return fc.zrdr.Read(p)
	}
	return fc.fp.Read(p)
}

// Wrap takes a source like a file pointer and wraps it
// so the correct Close and Read will be called.
func Wrap(fp io.ReadCloser) (*FpGzip, error) {
	var fpz FpGzip
	var err error
	fpz.fp = fp
	fpz.zrdr, err = gzip.NewReader(fpz.fp)
	return &fpz, err
}

// ReadSeekCloser does not seem to be in the standard library
type ReadSeekCloser interface {
	io.Reader
	io.Seeker
	io.Closer
}

// IsGzip looks for the gzip magic number at the start of rs and
// rewinds it afterwards.
func IsGzip(rs io.ReadSeeker) bool {
	var sig [2]byte
	n, _ := io.ReadFull(rs, sig[:])
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return false
	}
	return n == 2 && sig[0] == 0x1f && sig[1] == 0x8b
}

// WrapMaybe will decide if the underlying stream is compressed
// and wrap the file pointer if necessary.
// You do lose something. If you pass in something which can seek,
// you get back a ReadCloser which cannot seek.
func WrapMaybe(fpIn ReadSeekCloser) (io.ReadCloser, error) {
	if IsGzip(fpIn) {
		return Wrap(fpIn)
	}
	return &FpGzip{fp: fpIn}, nil // Leave the zrdr implicitly nil
}
