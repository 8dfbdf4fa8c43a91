// Package plotter writes one tab-separated .dat file per monitor so
// collected samples can be graphed offline. It is an optional sink; the
// daemon runs identically without it.
package plotter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/virtmem/memctl/internal/errors"
	"github.com/virtmem/memctl/internal/monitor"
)

const (
	ErrOpenFailed  = errors.ErrorCode("plotter_open_failed")
	ErrWriteFailed = errors.ErrorCode("plotter_write_failed")

	defaultDirPerm = 0o755
)

type Plotter struct {
	file          *os.File
	keys          []string
	headerWritten bool
}

// New opens (appending) the plot file for the named monitor under dir.
func New(dir, name string) (*Plotter, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	path := filepath.Join(dir, name+".dat")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errFactory.Wrap(ErrOpenFailed, err)
	}

	return &Plotter{file: file}, nil
}

// Plot appends one sample row. The column set is fixed by the first call;
// fields holds the monitor's full field contract in stable order.
func (p *Plotter) Plot(fields []string, data monitor.Sample) error {
	errFactory := errors.New()

	if !p.headerWritten {
		p.keys = append([]string(nil), fields...)
		header := "# time\t" + strings.Join(p.keys, "\t") + "\n"
		if _, err := p.file.WriteString(header); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
		p.headerWritten = true
	}

	row := make([]string, 0, len(p.keys)+1)
	row = append(row, fmt.Sprintf("%.3f", float64(time.Now().UnixMilli())/1000))
	for _, key := range p.keys {
		val, ok := data[key]
		if !ok || val == nil {
			row = append(row, "-")
			continue
		}
		row = append(row, fmt.Sprintf("%v", val))
	}

	if _, err := p.file.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return p.file.Sync()
}

func (p *Plotter) Close() error {
	return p.file.Close()
}
