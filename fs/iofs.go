package fs

import (
	"errors"
	iofs "io/fs"
)

var (
	ErrInvalid      = iofs.ErrInvalid
	ErrPermission   = iofs.ErrPermission
	ErrExist        = iofs.ErrExist
	ErrNotExist     = iofs.ErrNotExist
	ErrClosed       = iofs.ErrClosed
	ErrNotSupported = errors.New("operation not supported")
)

var (
	FormatFileInfo = iofs.FormatFileInfo
	ReadFile       = iofs.ReadFile
	ValidPath      = iofs.ValidPath
	ReadDir        = iofs.ReadDir
	Stat           = iofs.Stat
)

const (
	ModeDir        = iofs.ModeDir
	ModeSymlink    = iofs.ModeSymlink
	ModeNamedPipe  = iofs.ModeNamedPipe
	ModeCharDevice = iofs.ModeCharDevice
	ModeDevice     = iofs.ModeDevice
	ModeType       = iofs.ModeType
	ModePerm       = iofs.ModePerm
)

type (
	FS          = iofs.FS
	File        = iofs.File
	FileInfo    = iofs.FileInfo
	FileMode    = iofs.FileMode
	DirEntry    = iofs.DirEntry
	PathError   = iofs.PathError
	ReadDirFile = iofs.ReadDirFile
	ReadDirFS   = iofs.ReadDirFS
	StatFS      = iofs.StatFS
)
