package ssh

import (
	"fmt"
	"io"

	"github.com/pkg/sftp"
	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/procfs"
)

// ProcReader reads the remote /proc over SFTP. It satisfies procfs.Reader,
// so a remote Linux host can be enumerated without running ps.
type ProcReader struct {
	client *sftp.Client
}

var _ procfs.Reader = (*ProcReader)(nil)

// ProcReader opens an SFTP channel on the existing connection. The caller
// must Close it.
func (e *Environment) ProcReader() (*ProcReader, error) {
	client, err := e.connection()
	if err != nil {
		return nil, fmt.Errorf("cannot open sftp: %w", err)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, &proctree.TransportError{Err: fmt.Errorf("open sftp: %w", err)}
	}

	return &ProcReader{client: sftpClient}, nil
}

// ReadDir implements procfs.Reader.
func (r *ProcReader) ReadDir(name string) ([]string, error) {
	infos, err := r.client.ReadDir(name)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			names = append(names, fi.Name())
		}
	}

	return names, nil
}

// ReadFile implements procfs.Reader. Files under /proc report a zero size,
// so the content is read until EOF rather than by stat size.
func (r *ProcReader) ReadFile(name string) ([]byte, error) {
	f, err := r.client.Open(name)
	if err != nil {
		return nil, err
	}

	defer func() { _ = f.Close() }()

	return io.ReadAll(f)
}

// Close releases the SFTP channel.
func (r *ProcReader) Close() error {
	return r.client.Close()
}
