package sshprobe

import (
	"context"
	"time"

	"reconmcp/internal/core/ports"
)

// Cracker prueba credenciales SSH por contraseña.
type Cracker struct {
	timeout time.Duration
}

// NewCracker crea un Cracker SSH.
func NewCracker(timeout time.Duration) *Cracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Cracker{timeout: timeout}
}

func (c *Cracker) Name() string { return "ssh" }

// TryLogin completa el handshake y cierra sin abrir canales.
func (c *Cracker) TryLogin(ctx context.Context, host string, port int, username, password string) (bool, error) {
	client, err := connect(ctx, ports.Endpoint{Host: host, Port: port, Username: username, Password: password}, c.timeout)
	if err != nil {
		if isAuthRejection(err) {
			return false, nil
		}
		return false, err
	}
	_ = client.Close()
	return true, nil
}
