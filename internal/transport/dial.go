package transport

import (
	"context"
	"fmt"
)

// Dialer opens bulk transfer channels of one protocol.
type Dialer struct {
	Protocol Protocol
	SSH      SSHOptions

	// LocalRoot is the directory that backs ProtocolLocal.
	LocalRoot string
}

// Open connects to ep and returns a ready FileTransfer. The caller owns the
// returned channel and must Close it.
func (d Dialer) Open(ctx context.Context, ep Endpoint) (FileTransfer, error) {
	switch d.Protocol {
	case ProtocolLocal:
		if d.LocalRoot == "" {
			return nil, fmt.Errorf("local transfer root is required")
		}
		return NewLocal(d.LocalRoot, d.SSH.Options), nil
	case "", ProtocolSCP, ProtocolSFTP:
	default:
		return nil, fmt.Errorf("unsupported transfer protocol: %s", d.Protocol)
	}

	s, err := NewSSH(ep.Host, d.SSH.WithEndpoint(ep))
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}

	if d.Protocol == ProtocolSFTP {
		if _, err := s.getSFTP(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
	return NewSCP(s), nil
}
