package ftpprobe

import (
	"context"
	"errors"
	"net/textproto"
	"time"

	"github.com/jlaffaye/ftp"

	"reconmcp/internal/core/domain"
	perrors "reconmcp/internal/platform/errors"
)

// Cracker prueba credenciales FTP. Un 530 es un rechazo limpio.
type Cracker struct {
	timeout time.Duration
}

// NewCracker crea un Cracker FTP.
func NewCracker(timeout time.Duration) *Cracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Cracker{timeout: timeout}
}

func (c *Cracker) Name() string { return "ftp" }

// TryLogin abre una conexión nueva por intento.
func (c *Cracker) TryLogin(ctx context.Context, host string, port int, username, password string) (bool, error) {
	conn, _, err := dial(ctx, host, port, c.timeout)
	if err != nil {
		return false, err
	}
	defer conn.Quit()

	if err := conn.Login(username, password); err != nil {
		if isAuthRejection(err) {
			return false, nil
		}
		var tp *textproto.Error
		if errors.As(err, &tp) && tp.Code == ftp.StatusNotAvailable {
			// 421: demasiadas conexiones desde esta IP
			return false, &domain.ProbeTransportError{Probe: "ftp", Err: err}
		}
		if perrors.IsConnectionError(err) || perrors.IsTimeout(err) {
			return false, classify(ctx, err)
		}
		return false, err
	}
	_ = conn.Logout()
	return true, nil
}
