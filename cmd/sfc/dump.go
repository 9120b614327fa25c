package main

import (
	"os"

	"github.com/spf13/cobra"

	"sfc"
)

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <模型文件>",
		Short: "加载模型并以规范格式重新导出",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := sfc.New()
			if err := c.Load(args[0]); err != nil {
				return err
			}
			return c.Export(os.Stdout)
		},
	}
}
