// Copyright 2021 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package linuxerr contains syscall error codes exported as *errors.Error
// values, so that handlers can return them directly and callers can compare
// them with Equals.
package linuxerr

import (
	goerrors "errors"

	"golang.org/x/sys/unix"
	"usergate.dev/usergate/pkg/errors"
)

var (
	noError *errors.Error = nil
	EPERM                 = errors.New(unix.EPERM, "operation not permitted")
	ENOENT                = errors.New(unix.ENOENT, "no such file or directory")
	ESRCH                 = errors.New(unix.ESRCH, "no such process")
	EINTR                 = errors.New(unix.EINTR, "interrupted system call")
	EIO                   = errors.New(unix.EIO, "I/O error")
	ENOEXEC               = errors.New(unix.ENOEXEC, "exec format error")
	EBADF                 = errors.New(unix.EBADF, "bad file number")
	ECHILD                = errors.New(unix.ECHILD, "no child processes")
	EAGAIN                = errors.New(unix.EAGAIN, "try again")
	ENOMEM                = errors.New(unix.ENOMEM, "out of memory")
	EFAULT                = errors.New(unix.EFAULT, "bad address")
	EEXIST                = errors.New(unix.EEXIST, "file exists")
	EISDIR                = errors.New(unix.EISDIR, "is a directory")
	EINVAL                = errors.New(unix.EINVAL, "invalid argument")
	EMFILE                = errors.New(unix.EMFILE, "too many open files")
	EFBIG                 = errors.New(unix.EFBIG, "file too large")
	ENOSPC                = errors.New(unix.ENOSPC, "no space left on device")
	ENAMETOOLONG          = errors.New(unix.ENAMETOOLONG, "file name too long")
	ENOSYS                = errors.New(unix.ENOSYS, "invalid system call number")
)

var errorsByErrno = map[unix.Errno]*errors.Error{
	unix.EPERM:        EPERM,
	unix.ENOENT:       ENOENT,
	unix.ESRCH:        ESRCH,
	unix.EINTR:        EINTR,
	unix.EIO:          EIO,
	unix.ENOEXEC:      ENOEXEC,
	unix.EBADF:        EBADF,
	unix.ECHILD:       ECHILD,
	unix.EAGAIN:       EAGAIN,
	unix.ENOMEM:       ENOMEM,
	unix.EFAULT:       EFAULT,
	unix.EEXIST:       EEXIST,
	unix.EISDIR:       EISDIR,
	unix.EINVAL:       EINVAL,
	unix.EMFILE:       EMFILE,
	unix.EFBIG:        EFBIG,
	unix.ENOSPC:       ENOSPC,
	unix.ENAMETOOLONG: ENAMETOOLONG,
	unix.ENOSYS:       ENOSYS,
}

// ErrorFromUnix returns a linuxerr from a unix.Errno. Errnos without a
// sentinel here are returned as they are.
func ErrorFromUnix(err unix.Errno) error {
	if err == unix.Errno(0) {
		return nil
	}
	if e, ok := errorsByErrno[err]; ok {
		return e
	}
	return err
}

// ToError converts a linuxerr to an error type.
func ToError(err *errors.Error) error {
	if err == noError {
		return nil
	}
	return err
}

// ToUnix converts a linuxerr to a unix.Errno.
func ToUnix(e *errors.Error) unix.Errno {
	var unixErr unix.Errno
	if e != noError {
		unixErr = e.Errno()
	}
	return unixErr
}

// Equals compares a linuxerr to a given error. Wrapped errors are unwrapped.
func Equals(e *errors.Error, err error) bool {
	if err == nil {
		return e == noError
	}
	if e == noError {
		return false
	}
	var le *errors.Error
	if goerrors.As(err, &le) {
		return le.Errno() == e.Errno()
	}
	var ue unix.Errno
	if goerrors.As(err, &ue) {
		return ue == e.Errno()
	}
	return false
}

// ErrnoOf returns the errno carried by err, or EIO if err carries none.
func ErrnoOf(err error) unix.Errno {
	if err == nil {
		return 0
	}
	var le *errors.Error
	if goerrors.As(err, &le) {
		return le.Errno()
	}
	var ue unix.Errno
	if goerrors.As(err, &ue) {
		return ue
	}
	return unix.EIO
}
