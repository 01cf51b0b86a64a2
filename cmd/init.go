package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const starterConfig = `version: "1.0"
name: example

machines:
  web1:
    addr: 127.0.0.1

resources:
  nginx_pkg:
    type: package
    machine: web1
    provider: apt
    packages: [nginx]
    state: present

  nginx_conf:
    type: file
    machine: web1
    depends_on: [nginx_pkg]
    path: /etc/nginx/nginx.conf
    state: file
    content: |
      worker_processes 1;

  nginx_svc:
    type: service
    machine: web1
    depends_on: [nginx_conf]
    name: nginx
    state: running
    enabled: true
    restart_on: [nginx_conf]
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config document",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			return err
		}
		pterm.Success.Printfln("wrote %s", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
