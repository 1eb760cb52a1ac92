package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/kiranshivaraju/scenegen/internal/config"
)

// SFTPPublisher uploads over a fresh SSH connection per file. The public URL
// is BaseURL + "/" + remoteName.
type SFTPPublisher struct {
	cfg     config.SFTPConfig
	hostKey ssh.HostKeyCallback
}

// NewSFTPPublisher validates cfg. Without HostKey the server key is not checked.
func NewSFTPPublisher(cfg config.SFTPConfig) (*SFTPPublisher, error) {
	cb := ssh.InsecureIgnoreHostKey()
	if cfg.HostKey != "" {
		pk, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.HostKey))
		if err != nil {
			return nil, fmt.Errorf("parsing SFTP_HOST_KEY: %w", err)
		}
		cb = ssh.FixedHostKey(pk)
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SFTPPublisher{cfg: cfg, hostKey: cb}, nil
}

func (p *SFTPPublisher) Upload(ctx context.Context, localPath, remoteName string) (string, error) {
	client, closeAll, err := p.dial(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer closeAll()

	remote := path.Join(p.cfg.RemotePath, remoteName)
	if dir := path.Dir(remote); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return "", fmt.Errorf("%w: creating %s: %v", ErrUploadFailed, dir, err)
		}
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer src.Close()

	dst, err := client.Create(remote)
	if err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrUploadFailed, remote, err)
	}
	if _, err := dst.ReadFrom(src); err != nil {
		dst.Close()
		return "", fmt.Errorf("%w: writing %s: %v", ErrUploadFailed, remote, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("%w: closing %s: %v", ErrUploadFailed, remote, err)
	}

	url := JoinURL(p.cfg.BaseURL, remoteName)
	slog.Info("uploaded over sftp", "host", p.cfg.Host, "remote_path", remote, "url", url)
	return url, nil
}

func (p *SFTPPublisher) dial(ctx context.Context) (*sftp.Client, func(), error) {
	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))

	d := net.Dialer{Timeout: p.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            p.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(p.cfg.Password)},
		HostKeyCallback: p.hostKey,
		Timeout:         p.cfg.Timeout,
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake: %w", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("starting sftp session: %w", err)
	}

	return client, func() {
		client.Close()
		sshClient.Close()
	}, nil
}

// Compile-time check that SFTPPublisher implements Publisher.
var _ Publisher = (*SFTPPublisher)(nil)
