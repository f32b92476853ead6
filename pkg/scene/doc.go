// Package scene is an in-memory document of geometric objects addressed by
// UUID handles. It is the host the orient batch works against: it copies and
// transforms objects on request and reads line curves as segments.
package scene
