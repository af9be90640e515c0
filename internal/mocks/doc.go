// Package mocks provides shared test doubles for the store and auth
// interfaces.
//
// Store mocks are built on testify/mock so tests can assert exact calls:
//
//	tasks := new(mocks.MockTaskStore)
//	tasks.On("Delete", mock.Anything, userID, int64(7)).Return(int64(1), nil)
//	...
//	tasks.AssertExpectations(t)
//
// The JWT and password doubles use function fields, which keeps handler
// tests that never care about call counts short.
package mocks
