// Package tessellate turns the solids of a scene document into triangle
// meshes using a geometry kernel. One mesh is produced per solid object.
package tessellate

import (
	"fmt"

	"github.com/chazu/orient/pkg/kernel"
	"github.com/chazu/orient/pkg/scene"
	"github.com/google/uuid"
)

// Tessellate produces one triangle mesh per solid in the document, in
// document order. Points and curves have no surface and are skipped. The
// tessellator is read-only and never mutates the document.
func Tessellate(d *scene.Document, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if d == nil {
		return nil, nil
	}
	return meshAll(k, d.Objects())
}

// Objects tessellates only the given handles, in the order given. Handles
// that are not solids are skipped; unknown handles are an error.
func Objects(d *scene.Document, k kernel.Kernel, ids []uuid.UUID) ([]*kernel.Mesh, error) {
	objs := make([]scene.Object, 0, len(ids))
	for _, id := range ids {
		o, ok := d.Get(id)
		if !ok {
			return nil, fmt.Errorf("tessellate: %s: %w", id, scene.ErrNotFound)
		}
		objs = append(objs, o)
	}
	return meshAll(k, objs)
}

func meshAll(k kernel.Kernel, objs []scene.Object) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, o := range objs {
		if o.Kind != scene.KindSolid {
			continue
		}
		mesh, err := k.ToMesh(o.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %s: %w", o.Label(), err)
		}
		mesh.Name = o.Label()
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
