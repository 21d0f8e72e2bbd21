// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package file is the path-based I/O layer behind pngcodec's
// DecodeFile/EncodeFile entry points: it reads input from, and writes
// output to, either a local path or an s3:// URI, so the core codec's
// file-path operations aren't tied to the local filesystem alone.
package file

import (
	"context"
	"io/ioutil"

	"github.com/cenkalti/backoff/v3"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"

	"github.com/aws/aws-sdk-go/aws/session"
)

func init() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

// maxAttempts bounds the retry loop ReadAll/WriteAll run I/O errors
// through, a concession to the s3:// backend's own transient-error
// surface. Every error is retried; none is classified as permanent.
const maxAttempts = 3

// ReadAll reads the whole contents of path, which may be a local filesystem
// path or an s3:// URI (when the aws session has usable credentials),
// retrying any failure with exponential backoff, up to maxAttempts tries.
func ReadAll(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	op := func() error {
		f, err := file.Open(ctx, path)
		if err != nil {
			return err
		}
		defer f.Close(ctx)
		data, err = ioutil.ReadAll(f.Reader(ctx))
		return err
	}
	if err := retry(op); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteAll writes data to path, which may be a local filesystem path or an
// s3:// URI, retrying any failure with exponential backoff, up to
// maxAttempts tries.
func WriteAll(ctx context.Context, path string, data []byte) error {
	op := func() error {
		f, err := file.Create(ctx, path)
		if err != nil {
			return err
		}
		if _, err := f.Writer(ctx).Write(data); err != nil {
			f.Close(ctx)
			return err
		}
		return f.Close(ctx)
	}
	return retry(op)
}

// retry runs op under an exponential backoff policy capped at maxAttempts
// total tries, in the style cenkalti/backoff's own NewExponentialBackOff
// constructor is documented to be used with.
func retry(op func() error) error {
	attempt := 0
	policy := backoff.NewExponentialBackOff()
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil && attempt >= maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(wrapped, backoff.WithMaxRetries(policy, maxAttempts-1))
}
