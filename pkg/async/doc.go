// Package async provides safe fire-and-forget execution for background tasks.
//
// # Overview
//
// SafeGo runs a function in a goroutine with a timeout, panic recovery and
// error logging through the logger carried by the parent context:
//
//	async.SafeGo(ctx, 2*time.Second, "orgs cache fill", func(ctx context.Context) error {
//		return client.Set(ctx, key, data, ttl).Err()
//	})
//
// Pass context.WithoutCancel(r.Context()) when the task must outlive the
// request that started it.
//
// # Related Packages
//
//   - pkg/orgs: fills the shared Redis cache in the background
package async
