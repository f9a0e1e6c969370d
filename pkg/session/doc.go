/*
Package session coordinates access to cached run results.

It serializes writes per run id with reference-counted in-process mutexes and,
when configured, a ports.DistributedLocker shared by every replica.
*/
package session
