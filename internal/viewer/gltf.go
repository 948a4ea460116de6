package viewer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"server/internal/domain"
)

// Scene is what the presenter needs from a loaded asset: its extent and
// optional geometry counts. The asset's materials, textures and node graph
// stay opaque.
type Scene struct {
	Bounds Bounds
	Stats  domain.MeshStats
}

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
)

type gltfDocument struct {
	Meshes []struct {
		Primitives []struct {
			Attributes map[string]int `json:"attributes"`
			Indices    *int           `json:"indices"`
		} `json:"primitives"`
	} `json:"meshes"`
	Accessors []struct {
		Count int       `json:"count"`
		Min   []float64 `json:"min"`
		Max   []float64 `json:"max"`
	} `json:"accessors"`
}

// LoadScene reads the extent of a generated model from its glTF metadata.
// Both binary .glb containers and plain .gltf JSON are accepted; position
// accessors carry mandatory min/max, so no geometry buffers are decoded.
func LoadScene(data []byte) (*Scene, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	bounds := EmptyBounds()
	stats := domain.MeshStats{}
	seenPositions := make(map[int]bool)
	for _, mesh := range doc.Meshes {
		for _, prim := range mesh.Primitives {
			posIdx, ok := prim.Attributes["POSITION"]
			if !ok || posIdx < 0 || posIdx >= len(doc.Accessors) {
				continue
			}
			acc := doc.Accessors[posIdx]
			if len(acc.Min) >= 3 && len(acc.Max) >= 3 {
				bounds = bounds.Extend(Vec3{acc.Min[0], acc.Min[1], acc.Min[2]})
				bounds = bounds.Extend(Vec3{acc.Max[0], acc.Max[1], acc.Max[2]})
			}
			if !seenPositions[posIdx] {
				seenPositions[posIdx] = true
				stats.Vertices += acc.Count
			}
			if prim.Indices != nil && *prim.Indices >= 0 && *prim.Indices < len(doc.Accessors) {
				stats.Faces += doc.Accessors[*prim.Indices].Count / 3
			} else {
				stats.Faces += acc.Count / 3
			}
		}
	}
	if bounds.IsEmpty() {
		return nil, fmt.Errorf("viewer: asset carries no positioned geometry")
	}
	return &Scene{Bounds: bounds, Stats: stats}, nil
}

func parseDocument(data []byte) (*gltfDocument, error) {
	jsonChunk, err := extractJSON(data)
	if err != nil {
		return nil, err
	}
	var doc gltfDocument
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return nil, fmt.Errorf("viewer: decode gltf json: %w", err)
	}
	return &doc, nil
}

// extractJSON returns the JSON chunk of a GLB container, or the input itself
// when it is already plain glTF JSON.
func extractJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed, nil
	}

	if len(data) < 12 {
		return nil, fmt.Errorf("viewer: asset too short for a glb header")
	}
	if binary.LittleEndian.Uint32(data[0:4]) != glbMagic {
		return nil, fmt.Errorf("viewer: not a glb container")
	}
	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) > len(data) {
		return nil, fmt.Errorf("viewer: truncated glb container")
	}

	offset := 12
	for offset+8 <= len(data) {
		chunkLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		offset += 8
		if offset+chunkLen > len(data) {
			return nil, fmt.Errorf("viewer: truncated glb chunk")
		}
		if chunkType == glbChunkJSON {
			return data[offset : offset+chunkLen], nil
		}
		offset += chunkLen
	}
	return nil, fmt.Errorf("viewer: glb container has no json chunk")
}
