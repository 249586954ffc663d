package service

import (
	"github.com/jengzang/mobility-backend-go/internal/config"
	"github.com/jengzang/mobility-backend-go/internal/mesos"
	"github.com/jengzang/mobility-backend-go/internal/mobility"
)

// WindowOptions derives the day windowing options from cfg
func WindowOptions(cfg *config.Config) (mobility.WindowOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return mobility.WindowOptions{}, err
	}
	ratio := cfg.DwellingSplitRatio
	return mobility.WindowOptions{
		Area:                 cfg.Area,
		Location:             loc,
		SplitRatio:           &ratio,
		MaxDistinctLocations: cfg.MaxDistinctLocations,
	}, nil
}

// MesosOptions derives the graph comparison options from cfg
func MesosOptions(cfg *config.Config) mesos.Options {
	opts := mesos.DefaultOptions()
	opts.Lambda = cfg.KernelLambda
	opts.Kernel = mesos.NewTACSim(cfg.KernelSharpness, cfg.KernelIterations)
	return opts
}
