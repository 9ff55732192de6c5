// Package postgres owns the service's connections: the PostgreSQL primary
// and read replicas, the Redis client, and the embedded schema migrations.
//
// # Overview
//
//	cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfig{
//		PrimaryURL:  cfg.Database.URL,
//		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
//		MaxConns:    20,
//	}, logger)
//
// ConnectionManager satisfies subscriptions.Databases: writes go to
// Primary, searches and summaries go to Replica, which falls back to the
// primary when no replica is healthy.
//
// # Migrations
//
// SQL files under migrations/ are embedded and applied in name order by
// Migrate. Applied versions are recorded in schema_migrations.
package postgres
