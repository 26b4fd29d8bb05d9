package config

import "fmt"

type PagingConfig interface {
	GetInitialFetchSize() int
	GetFetchSize() int
	GetMaxOffset() int
}

// Paging sizes the remote fetches; the per-sort page sizes live with the pager.
type Paging struct {
	InitialFetchSize int `yaml:"initial_fetch_size" env:"INITIAL_FETCH_SIZE"`
	FetchSize        int `yaml:"fetch_size" env:"FETCH_SIZE"`
	MaxOffset        int `yaml:"max_offset" env:"MAX_OFFSET"`
}

func defaultPaging() Paging {
	return Paging{
		InitialFetchSize: 150,
		FetchSize:        200,
		MaxOffset:        1020,
	}
}

func (p Paging) validate() error {
	if p.InitialFetchSize <= 0 || p.FetchSize <= 0 {
		return fmt.Errorf("paging fetch sizes must be positive, got %d/%d", p.InitialFetchSize, p.FetchSize)
	}
	if p.MaxOffset < 0 {
		return fmt.Errorf("paging max offset must not be negative, got %d", p.MaxOffset)
	}
	return nil
}

func (e EnvVars) GetInitialFetchSize() int {
	return e.Paging.InitialFetchSize
}

func (e EnvVars) GetFetchSize() int {
	return e.Paging.FetchSize
}

func (e EnvVars) GetMaxOffset() int {
	return e.Paging.MaxOffset
}
