package gateway

import "errors"

var ErrProcessorNotSupported = errors.New("payment processor is not supported")

// Registry holds one client per payment processor. It is built once at
// startup and handed to the billing service, so tests can inject fakes
// per run instead of relying on process-wide state.
type Registry struct {
	clients map[int32]Client
}

func NewRegistry(clients ...Client) *Registry {
	items := make(map[int32]Client, len(clients))
	for _, c := range clients {
		items[c.ProcessorID()] = c
	}
	return &Registry{clients: items}
}

func (r *Registry) Get(processorID int32) (Client, error) {
	client, ok := r.clients[processorID]
	if !ok {
		return nil, ErrProcessorNotSupported
	}
	return client, nil
}
