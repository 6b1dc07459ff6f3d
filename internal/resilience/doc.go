// Package resilience groups the fault tolerance helpers used around upstream feed calls.
//
// The subpackages are:
//   - retry: bounded attempts with linear backoff and a single exhaustion error
//   - spacing: strictly sequential iteration with a minimum gap before each call
//   - circuitbreaker: gobreaker wrappers, one per upstream API
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.TianAPIConfig("tianapi-star"))
//	err := retry.Do(ctx, retry.ClientPolicy(), func(ctx context.Context, attempt int) error {
//	    _, err := cb.Execute(func() (interface{}, error) {
//	        return client.Call(ctx)
//	    })
//	    return err
//	})
package resilience
