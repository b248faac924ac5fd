package mesh

import (
	"github.com/nyarurato/millsim/sdfgrid"
	"github.com/nyarurato/millsim/volume"
)

// ExtractViaSDF builds an SDF from vs's current occupancy with the given
// narrow-band half-width (in voxels) and extracts a mesh from it —
// spec.md §6's extract_via_sdf(vs, narrow_band) convenience entry point.
func ExtractViaSDF(vs volume.Store, narrowBandVoxels int) Mesh {
	sg := sdfgrid.FromVolumeStore(vs, sdfgrid.WithNarrowBandVoxels(narrowBandVoxels))
	return ExtractFromSDF(sg)
}
