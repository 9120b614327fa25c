package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sfc"
	"sfc/debug"
)

// runConfig 仿真运行配置
type runConfig struct {
	TimeStep float64  `yaml:"timestep"` // 步长, 覆盖模型内 .tran
	Duration float64  `yaml:"duration"` // 时长, 覆盖模型内 .tran
	Stocks   []string `yaml:"stocks"`   // 采样的存量名, 空则全部
	Chart    string   `yaml:"chart"`    // 折线图输出路径
	JSON     string   `yaml:"json"`     // 历史数据输出路径, "-" 为标准输出
}

func (cfg *runConfig) load(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("配置解析失败: %w", err)
	}
	return nil
}

func newRunCommand() *cobra.Command {
	cfg := &runConfig{}
	configFile := ""
	cmd := &cobra.Command{
		Use:   "run <模型文件>",
		Short: "仿真模型并输出存量序列",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := cfg.load(configFile); err != nil {
					return err
				}
			}
			return runModel(args[0], cfg)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML 运行配置文件")
	cmd.Flags().StringVar(&cfg.Chart, "chart", "", "折线图输出路径 (PNG)")
	cmd.Flags().StringVar(&cfg.JSON, "json", "", "历史数据输出路径, - 为标准输出")
	cmd.Flags().Float64Var(&cfg.TimeStep, "timestep", 0, "步长, 覆盖模型内 .tran")
	cmd.Flags().Float64Var(&cfg.Duration, "duration", 0, "时长, 覆盖模型内 .tran")
	return cmd
}

func runModel(filename string, cfg *runConfig) error {
	c := sfc.New()
	if err := c.Load(filename); err != nil {
		return err
	}
	if cfg.TimeStep > 0 {
		c.TimeStep = cfg.TimeStep
	}
	if cfg.Duration > 0 {
		c.Duration = cfg.Duration
	}
	charts := &debug.Charts{Record: *debug.NewRecord(cfg.Stocks...), Title: filename}
	c.Record = &charts.Record
	if err := c.Run(); err != nil {
		return err
	}

	for _, name := range charts.Names {
		series := charts.Series[name]
		if len(series) > 0 {
			fmt.Printf("%s: %g\n", name, series[len(series)-1])
		}
	}
	if cfg.JSON == "-" {
		if err := charts.Render(os.Stdout); err != nil {
			return err
		}
	} else if cfg.JSON != "" {
		f, err := os.Create(cfg.JSON)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := charts.Render(f); err != nil {
			return err
		}
	}
	if cfg.Chart != "" {
		if err := charts.SavePNG(cfg.Chart); err != nil {
			return err
		}
	}
	return nil
}
