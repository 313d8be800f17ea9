package navio

import (
	"fmt"

	"github.com/gorustyt/navsystem/common/rw"
	"github.com/gorustyt/navsystem/navigation"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the blocks. New fields may be appended; readers skip the
// ones they do not know.
const (
	fileFieldVersion       protowire.Number = 1
	fileFieldConfigVersion protowire.Number = 2
	fileFieldArea          protowire.Number = 3
	fileFieldAgent         protowire.Number = 4

	areaFieldName protowire.Number = 1
	areaFieldID   protowire.Number = 2

	agentFieldName protowire.Number = 1
	agentFieldMesh protowire.Number = 2

	meshFieldID         protowire.Number = 1
	meshFieldName       protowire.Number = 2
	meshFieldIslands    protowire.Number = 3
	meshFieldBoundaryID protowire.Number = 4
	meshFieldBoundary   protowire.Number = 5
	meshFieldExclusions protowire.Number = 6
	meshFieldParams     protowire.Number = 7
	meshFieldTile       protowire.Number = 8
	meshFieldExclusion  protowire.Number = 9

	volumeFieldID   protowire.Number = 1
	volumeFieldData protowire.Number = 2
)

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func Marshal(f *File) ([]byte, error) {
	var b []byte
	b = appendVarint(b, fileFieldVersion, uint64(f.FileVersion))
	b = appendVarint(b, fileFieldConfigVersion, uint64(f.ConfigVersion))
	for _, a := range f.Areas {
		var ab []byte
		ab = appendBytes(ab, areaFieldName, []byte(a.Name))
		ab = appendVarint(ab, areaFieldID, uint64(a.ID))
		b = appendBytes(b, fileFieldArea, ab)
	}
	for i := range f.Agents {
		ab, err := marshalAgent(&f.Agents[i])
		if err != nil {
			return nil, err
		}
		b = appendBytes(b, fileFieldAgent, ab)
	}
	return b, nil
}

func marshalAgent(a *Agent) ([]byte, error) {
	b := appendBytes(nil, agentFieldName, []byte(a.Name))
	for i := range a.Meshes {
		mb, err := marshalMesh(&a.Meshes[i])
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", a.Name, err)
		}
		b = appendBytes(b, agentFieldMesh, mb)
	}
	return b, nil
}

func marshalVolume(v *Volume) []byte {
	w := rw.NewWriter()
	writeVolume(w, v)
	return w.GetWriteBytes()
}

func marshalMesh(m *Mesh) ([]byte, error) {
	var b []byte
	b = appendVarint(b, meshFieldID, uint64(m.ID))
	b = appendBytes(b, meshFieldName, []byte(m.Name))
	b = appendVarint(b, meshFieldIslands, uint64(m.TotalIslands))
	b = appendVarint(b, meshFieldBoundaryID, uint64(m.Boundary.ID))
	b = appendBytes(b, meshFieldBoundary, marshalVolume(&m.Boundary))

	var packed []byte
	for _, e := range m.Exclusions {
		packed = protowire.AppendVarint(packed, uint64(e.ID))
	}
	b = appendBytes(b, meshFieldExclusions, packed)

	w := rw.NewWriter()
	writeParams(w, &m.Params)
	b = appendBytes(b, meshFieldParams, w.GetWriteBytes())

	for i := range m.Tiles {
		w := rw.NewWriter()
		if err := writeTile(w, &m.Tiles[i]); err != nil {
			return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
		}
		b = appendBytes(b, meshFieldTile, w.GetWriteBytes())
	}
	for i := range m.Exclusions {
		var vb []byte
		vb = appendVarint(vb, volumeFieldID, uint64(m.Exclusions[i].ID))
		vb = appendBytes(vb, volumeFieldData, marshalVolume(&m.Exclusions[i]))
		b = appendBytes(b, meshFieldExclusion, vb)
	}
	return b, nil
}

// decoder walks the fields of one block. The first failure sticks.
type decoder struct {
	b   []byte
	err error
}

func (d *decoder) fail(n int) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %v", ErrCorruptData, protowire.ParseError(n))
	}
	d.b = nil
}

func (d *decoder) next() (protowire.Number, protowire.Type, bool) {
	if d.err != nil || len(d.b) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(d.b)
	if n < 0 {
		d.fail(n)
		return 0, 0, false
	}
	d.b = d.b[n:]
	return num, typ, true
}

func (d *decoder) varint(typ protowire.Type) uint64 {
	if typ != protowire.VarintType {
		d.err = fmt.Errorf("%w: expected varint, got wire type %d", ErrCorruptData, typ)
		d.b = nil
		return 0
	}
	v, n := protowire.ConsumeVarint(d.b)
	if n < 0 {
		d.fail(n)
		return 0
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) bytes(typ protowire.Type) []byte {
	if typ != protowire.BytesType {
		d.err = fmt.Errorf("%w: expected bytes, got wire type %d", ErrCorruptData, typ)
		d.b = nil
		return nil
	}
	v, n := protowire.ConsumeBytes(d.b)
	if n < 0 {
		d.fail(n)
		return nil
	}
	d.b = d.b[n:]
	return v
}

func (d *decoder) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, d.b)
	if n < 0 {
		d.fail(n)
		return
	}
	d.b = d.b[n:]
}

// Unmarshal decodes a file. A version other than FileVersion fails with
// ErrWrongVersion before anything else is read. Agent blocks rejected by keep
// are not decoded; their names end up in File.SkippedAgents. A nil keep
// decodes every agent.
func Unmarshal(data []byte, keep func(agentName string) bool) (*File, error) {
	f := &File{}
	d := decoder{b: data}
	versionSeen := false
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case fileFieldVersion:
			f.FileVersion = uint32(d.varint(typ))
			versionSeen = true
			if d.err == nil && f.FileVersion != FileVersion {
				return nil, fmt.Errorf("%w: found %d, expected %d", ErrWrongVersion, f.FileVersion, FileVersion)
			}
		case fileFieldConfigVersion:
			f.ConfigVersion = uint32(d.varint(typ))
		case fileFieldArea:
			a, err := unmarshalArea(d.bytes(typ))
			if err != nil {
				return nil, err
			}
			f.Areas = append(f.Areas, a)
		case fileFieldAgent:
			block := d.bytes(typ)
			if keep != nil {
				name, err := unmarshalAgentName(block)
				if err != nil {
					return nil, err
				}
				if !keep(name) {
					f.SkippedAgents = append(f.SkippedAgents, name)
					continue
				}
			}
			a, err := unmarshalAgent(block)
			if err != nil {
				return nil, err
			}
			f.Agents = append(f.Agents, a)
		default:
			d.skip(num, typ)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if !versionSeen {
		return nil, fmt.Errorf("%w: missing file version", ErrWrongVersion)
	}
	return f, nil
}

func unmarshalArea(b []byte) (a Area, err error) {
	d := decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case areaFieldName:
			a.Name = string(d.bytes(typ))
		case areaFieldID:
			a.ID = navigation.VolumeID(d.varint(typ))
		default:
			d.skip(num, typ)
		}
	}
	return a, d.err
}

// unmarshalAgentName reads only the name of an agent block, so readers can
// skip agents they do not know without decoding their meshes.
func unmarshalAgentName(b []byte) (string, error) {
	d := decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		if num == agentFieldName {
			return string(d.bytes(typ)), d.err
		}
		d.skip(num, typ)
	}
	return "", d.err
}

func unmarshalAgent(b []byte) (a Agent, err error) {
	d := decoder{b: b}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case agentFieldName:
			a.Name = string(d.bytes(typ))
		case agentFieldMesh:
			m, err := unmarshalMesh(d.bytes(typ))
			if err != nil {
				return a, fmt.Errorf("agent %q: %w", a.Name, err)
			}
			a.Meshes = append(a.Meshes, m)
		default:
			d.skip(num, typ)
		}
	}
	return a, d.err
}

func unmarshalVolume(b []byte) (Volume, error) {
	r := rw.NewReader(b)
	v := readVolume(r)
	if err := r.Err(); err != nil {
		return v, fmt.Errorf("%w: volume: %v", ErrCorruptData, err)
	}
	return v, nil
}

func unmarshalMesh(b []byte) (m Mesh, err error) {
	d := decoder{b: b}
	var exclusionIDs []navigation.VolumeID
	exclusions := map[navigation.VolumeID]Volume{}
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case meshFieldID:
			m.ID = navigation.MeshID(d.varint(typ))
		case meshFieldName:
			m.Name = string(d.bytes(typ))
		case meshFieldIslands:
			m.TotalIslands = uint32(d.varint(typ))
		case meshFieldBoundaryID:
			m.Boundary.ID = navigation.VolumeID(d.varint(typ))
		case meshFieldBoundary:
			id := m.Boundary.ID
			if m.Boundary, err = unmarshalVolume(d.bytes(typ)); err != nil {
				return m, err
			}
			m.Boundary.ID = id
		case meshFieldExclusions:
			packed := decoder{b: d.bytes(typ)}
			for len(packed.b) > 0 && packed.err == nil {
				exclusionIDs = append(exclusionIDs, navigation.VolumeID(packed.varint(protowire.VarintType)))
			}
			if packed.err != nil {
				return m, packed.err
			}
		case meshFieldParams:
			r := rw.NewReader(d.bytes(typ))
			m.Params = readParams(r)
			if r.Err() != nil {
				return m, fmt.Errorf("%w: mesh params: %v", ErrCorruptData, r.Err())
			}
		case meshFieldTile:
			rec, err := readTile(rw.NewReader(d.bytes(typ)))
			if err != nil {
				return m, fmt.Errorf("mesh %q: %w", m.Name, err)
			}
			m.Tiles = append(m.Tiles, rec)
		case meshFieldExclusion:
			v, err := unmarshalExclusion(d.bytes(typ))
			if err != nil {
				return m, err
			}
			exclusions[v.ID] = v
		default:
			d.skip(num, typ)
		}
	}
	if d.err != nil {
		return m, d.err
	}
	// ids without geometry keep an empty volume; the reader decides
	for _, id := range exclusionIDs {
		v, ok := exclusions[id]
		if !ok {
			v = Volume{ID: id}
		}
		m.Exclusions = append(m.Exclusions, v)
	}
	return m, nil
}

func unmarshalExclusion(b []byte) (v Volume, err error) {
	d := decoder{b: b}
	var id navigation.VolumeID
	for {
		num, typ, ok := d.next()
		if !ok {
			break
		}
		switch num {
		case volumeFieldID:
			id = navigation.VolumeID(d.varint(typ))
		case volumeFieldData:
			if v, err = unmarshalVolume(d.bytes(typ)); err != nil {
				return v, err
			}
		default:
			d.skip(num, typ)
		}
	}
	v.ID = id
	return v, d.err
}
