// Package orient derives the similarity transform that carries a reference
// line segment onto a target segment, and applies it to a set of objects
// once per target.
//
// Solve is the pure solver. Orienter drives a batch of targets against a
// host that owns the geometry, deciding per target whether the objects are
// duplicated or moved:
//
//	o := orient.NewOrienter(doc)
//	sum := o.Orient(objects, source, targets, false)
//	fmt.Printf("%d of %d oriented\n", sum.Succeeded, sum.Total())
//
// With copying disabled every target but the last still receives a copy;
// only the last target moves the original objects.
package orient
