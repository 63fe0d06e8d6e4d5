package stark

import (
	"fmt"
	"time"

	"github.com/cairn-zk/cairn/field/m31"
	"github.com/cairn-zk/cairn/logger"
)

// DomainCache precomputes the first row selector column of every domain size
// up to a bound. It is built once per proving run and shared read only by all
// components.
type DomainCache struct {
	logMaxRows uint32
	isFirst    [][]m31.Element
}

// NewDomainCache precomputes selectors for all log sizes up to logMaxRows.
func NewDomainCache(logMaxRows uint32) (*DomainCache, error) {
	if logMaxRows < 1 || logMaxRows > 28 {
		return nil, fmt.Errorf("stark: log max rows %d outside [1, 28]", logMaxRows)
	}
	log := logger.Logger().With().Str("backend", "stark").Logger()
	start := time.Now()

	isFirst := make([][]m31.Element, logMaxRows+1)
	for ls := uint32(0); ls <= logMaxRows; ls++ {
		col := make([]m31.Element, 1<<ls)
		col[0] = m31.One()
		isFirst[ls] = col
	}

	log.Debug().Dur("took", time.Since(start)).Uint32("logMaxRows", logMaxRows).Msg("domain cache ready")
	return &DomainCache{logMaxRows: logMaxRows, isFirst: isFirst}, nil
}

// LogMaxRows returns the cache bound.
func (d *DomainCache) LogMaxRows() uint32 { return d.logMaxRows }

// IsFirst returns the selector column of the given size: 1 at row 0 and 0
// elsewhere. The returned slice is shared and must not be written to.
func (d *DomainCache) IsFirst(logSize uint32) ([]m31.Element, error) {
	if logSize > d.logMaxRows {
		return nil, fmt.Errorf("%w: log size %d, maximum %d", ErrTraceTooLarge, logSize, d.logMaxRows)
	}
	return d.isFirst[logSize], nil
}
