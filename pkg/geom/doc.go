// Package geom defines the points, vectors and directed line segments that
// the orient solver works on. Coordinates are sdfx vectors so that they can
// be handed straight to the geometry kernel.
package geom
