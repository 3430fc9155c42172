// Package consul registers the API with a consul agent so the rest of the
// infrastructure can discover it. Registration is optional: when
// CONSUL_HTTP_ADDR is unset the service runs standalone.
package consul

import (
	"fmt"
	"os"

	consulapi "github.com/hashicorp/consul/api"
)

func NewClient() (*consulapi.Client, error) {
	if os.Getenv("CONSUL_HTTP_ADDR") == "" {
		return nil, nil
	}
	client, err := consulapi.NewClient(consulapi.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("creating consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers this instance with an HTTP health check on /ping.
func RegisterService(client *consulapi.Client, name, address string, port int) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s-%d", name, address, port),
		Name:    name,
		Address: address,
		Port:    port,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/ping", address, port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("registering service %s: %w", name, err)
	}
	return nil
}

// GetServiceAddress resolves one healthy instance of a registered service.
func GetServiceAddress(client *consulapi.Client, serviceName string) (string, int, error) {
	services, _, err := client.Health().Service(serviceName, "", true, nil)
	if err != nil {
		return "", 0, fmt.Errorf("querying consul for %s: %w", serviceName, err)
	}
	if len(services) == 0 {
		return "", 0, fmt.Errorf("no healthy instances of %s", serviceName)
	}
	svc := services[0].Service
	return svc.Address, svc.Port, nil
}
