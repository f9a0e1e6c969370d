// Package loam loads assessment definitions from a Loam document repository.
package loam
