package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/example/storefront/pkg/config"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
	logger *zap.Logger

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID
}

type ServiceInstance struct {
	Name string
	Host string
	Port int
}

func (i *ServiceInstance) Addr() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

func NewServiceDiscovery(cfg *config.EtcdConfig, logger *zap.Logger) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
		logger: logger,
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func instanceKey(prefix string, instance *ServiceInstance) string {
	return fmt.Sprintf("%s%s/%s", prefix, instance.Name, instance.Addr())
}

func serviceKey(prefix, name string) string {
	return fmt.Sprintf("%s%s/", prefix, name)
}

// Register writes the instance under a lease that is kept alive until
// Deregister or ctx is cancelled.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance *ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)

	ttl := sd.config.LeaseTTL
	if ttl <= 0 {
		ttl = 30
	}
	lease, err := sd.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	if _, err := sd.client.Put(ctx, key, instance.Addr(), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, err := sd.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	sd.mu.Lock()
	sd.leases[key] = lease.ID
	sd.mu.Unlock()

	go func() {
		for range ch {
		}
		sd.logger.Info("Service lease keep-alive ended", zap.String("key", key))
	}()

	sd.logger.Info("Service registered", zap.String("key", key), zap.Int64("ttl", ttl))
	return nil
}

func (sd *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	resp, err := sd.client.Get(ctx, serviceKey(sd.config.Prefix, serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	return decodeInstances(serviceName, resp.Kvs, sd.logger), nil
}

// decodeInstances turns registration entries into instances, skipping
// values that are not host:port.
func decodeInstances(name string, kvs []*mvccpb.KeyValue, logger *zap.Logger) []*ServiceInstance {
	instances := make([]*ServiceInstance, 0, len(kvs))
	for _, kv := range kvs {
		instance, err := parseInstance(name, string(kv.Value))
		if err != nil {
			logger.Warn("Skipping malformed registration", zap.String("key", string(kv.Key)), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	return instances
}

func parseInstance(name, addr string) (*ServiceInstance, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return &ServiceInstance{Name: name, Host: host, Port: port}, nil
}

// Deregister revokes the instance lease, which also removes its key.
func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance *ServiceInstance) error {
	key := instanceKey(sd.config.Prefix, instance)

	sd.mu.Lock()
	id, ok := sd.leases[key]
	delete(sd.leases, key)
	sd.mu.Unlock()

	if ok {
		if _, err := sd.client.Revoke(ctx, id); err != nil {
			return fmt.Errorf("failed to revoke lease: %w", err)
		}
		return nil
	}

	if _, err := sd.client.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}
