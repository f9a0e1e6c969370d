// Package validator performs static checks on decoded assessment trees.
package validator
