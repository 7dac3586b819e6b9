// Package utils provides common utility functions for the catalog-manager application.
// It includes helper functions for type conversion, string normalization, and other
// shared logic that doesn't fit into domain-specific packages.
package utils
