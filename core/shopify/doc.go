// Package shopify provides the remote catalog transport.
//
// The rest of the application depends only on the Client capability:
// Execute(operation, variables) -> *Result. The HTTP implementation talks
// to the Admin GraphQL API; tests substitute a fake.
//
// # Response normalization
//
// Remote responses arrive in several shapes (an already decoded map, a
// response body to be read, or a raw JSON string). Normalize collapses all
// of them into the single Result{Data, Errors} form before anything
// inspects them, and fails with ResponseFormatError on anything it does
// not recognize.
package shopify
