package main

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// Registry keeps this instance's address under a leased etcd key for as
// long as the process runs.
type Registry struct {
	client *etcd.Client
	lease  etcd.LeaseID
	key    string
	cancel context.CancelFunc
}

func instanceKey(prefix string, id uuid.UUID) string {
	return prefix + id.String()
}

func Register(ctx context.Context, config models.RegistryConfig, addr string) (*Registry, error) {
	client, err := etcd.New(etcd.Config{Endpoints: config.Endpoints, DialTimeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	lease, err := client.Grant(ctx, config.LeaseTTL)
	if err != nil {
		log.Printf("Error in Creating Lease for instance: %v", err)
		client.Close()
		return nil, err
	}
	key := instanceKey(config.Prefix, uuid.New())
	if _, err := client.Put(ctx, key, addr, etcd.WithLease(lease.ID)); err != nil {
		client.Close()
		return nil, err
	}

	kaCtx, cancel := context.WithCancel(context.Background())
	ch, err := client.KeepAlive(kaCtx, lease.ID)
	if err != nil {
		cancel()
		client.Close()
		return nil, err
	}
	go func() {
		for range ch {
		}
		log.Printf("Lease keep-alive for %s stopped", key)
	}()

	log.Printf("Registered %s as %s", addr, key)
	return &Registry{client: client, lease: lease.ID, key: key, cancel: cancel}, nil
}

// Close revokes the lease so the key disappears immediately.
func (reg *Registry) Close() {
	reg.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := reg.client.Revoke(ctx, reg.lease); err != nil {
		log.Println("Error revoking registry lease: ", err.Error())
	}
	if err := reg.client.Close(); err != nil {
		log.Println("Error closing etcd client: ", err.Error())
	}
}
