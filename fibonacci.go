package main

// fib returns the n-th Fibonacci number using plain recursion. Values of n
// at or below 1 are returned unchanged, so negative input passes through.
// The sum wraps on int64 overflow.
func fib(n int64) int64 {
	if n <= 1 {
		return n
	}
	return fib(n-1) + fib(n-2)
}
