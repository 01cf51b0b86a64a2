package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/forjar/forjar/internal/core"
)

// SSHTransport dispatches scripts through the ssh binary as a subprocess
// (§10.3: Execute is always subprocess-backed, remotely the ssh binary
// rather than an in-process client) and copies files over a separate,
// lazily-opened golang.org/x/crypto/ssh + pkg/sftp session — Execute has
// no use for that connection, but file resources with a source do (§10.4).
type SSHTransport struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

func NewSSHTransport() *SSHTransport {
	return &SSHTransport{}
}

// Execute runs the local ssh client in its own process group so a context
// deadline can kill the client (and anything it forked, such as
// ControlMaster multiplexing) rather than just the one pid. Killing the
// local ssh client does not guarantee the remote bash -s session it spawned
// exits too — that would need a remote-side watchdog this transport doesn't
// run — but it does stop forjar itself from blocking past the deadline.
func (t *SSHTransport) Execute(ctx context.Context, machine *core.Machine, script string) (core.ExecResult, error) {
	start := time.Now()
	args := []string{"-o", "BatchMode=yes", "-o", "ConnectTimeout=10", "-o", "StrictHostKeyChecking=accept-new"}
	if machine.SSHKey != "" {
		args = append(args, "-i", machine.SSHKey)
	}
	args = append(args, fmt.Sprintf("%s@%s", machine.EffectiveUser(), machine.Addr), "bash -s")

	cmd := exec.Command("ssh", args...)
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return core.ExecResult{Duration: time.Since(start)}, err
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		result := core.ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if err != nil {
			return result, err
		}
		return result, nil
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-waitErr
		result := core.ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
		return result, &core.TransportTimeout{Machine: machine.ID, Elapsed: time.Since(start)}
	}
}

func (t *SSHTransport) connect(machine *core.Machine) (*sftp.Client, error) {
	if t.sftpClient != nil {
		return t.sftpClient, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")
	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %s: %w", knownHostsPath, err)
	}

	var auth []ssh.AuthMethod
	if machine.SSHKey != "" {
		keyBytes, err := os.ReadFile(machine.SSHKey)
		if err != nil {
			return nil, fmt.Errorf("read ssh key %s: %w", machine.SSHKey, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", machine.SSHKey, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	config := &ssh.ClientConfig{
		User:            machine.EffectiveUser(),
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         15 * time.Second,
	}

	addr := machine.Addr
	if !strings.Contains(addr, ":") {
		addr = addr + ":22"
	}
	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("open sftp session to %s: %w", addr, err)
	}
	t.sshClient = sshClient
	t.sftpClient = sftpClient
	return sftpClient, nil
}

func (t *SSHTransport) CopyFile(ctx context.Context, machine *core.Machine, localPath, remotePath string) error {
	client, err := t.connect(machine)
	if err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source %s: %w", localPath, err)
	}
	defer src.Close()

	if err := client.MkdirAll(filepath.Dir(remotePath)); err != nil {
		return fmt.Errorf("create remote directory: %w", err)
	}
	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", localPath, remotePath, err)
	}
	return nil
}

func (t *SSHTransport) Close() error {
	if t.sftpClient != nil {
		t.sftpClient.Close()
	}
	if t.sshClient != nil {
		return t.sshClient.Close()
	}
	return nil
}
