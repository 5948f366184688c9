// Package mechfile loads mechanism descriptions from YAML and builds the
// corresponding System. The file format names bodies; indices are assigned
// in declaration order, so a body may only reference bodies declared before
// it (or "ground").
package mechfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/ShenRen/simbody"
	"github.com/ShenRen/simbody/constraint"
	"github.com/ShenRen/simbody/mobilizer"
	"github.com/ShenRen/simbody/spatial"
)

var (
	ErrUnknownBodyName   = errors.New("mechfile: unknown body name")
	ErrUnknownJoint      = errors.New("mechfile: unknown joint type")
	ErrUnknownConstraint = errors.New("mechfile: unknown constraint type")
	ErrDuplicateBody     = errors.New("mechfile: duplicate body name")
)

// Frame places a joint frame: a position offset plus an axis-angle rotation.
type Frame struct {
	Position []float64 `yaml:"position"`
	Axis     []float64 `yaml:"axis"`
	Angle    float64   `yaml:"angle"`
}

type Body struct {
	Name    string    `yaml:"name"`
	Parent  string    `yaml:"parent"` // empty means ground
	Joint   string    `yaml:"joint"`
	Mass    float64   `yaml:"mass"`
	COM     []float64 `yaml:"com"`
	Inertia float64   `yaml:"inertia"`

	Inboard  Frame `yaml:"inboard"`
	Outboard Frame `yaml:"outboard"`
}

type Constraint struct {
	Type string `yaml:"type"` // ball, rod, orientation, speed

	Body1  string    `yaml:"body1"`
	Point1 []float64 `yaml:"point1"`
	Body2  string    `yaml:"body2"`
	Point2 []float64 `yaml:"point2"`

	Frame1 Frame `yaml:"frame1"`
	Frame2 Frame `yaml:"frame2"`

	Length float64 `yaml:"length"`

	Body  string  `yaml:"body"`
	Dof   int     `yaml:"dof"`
	Speed float64 `yaml:"speed"`
}

type Torque struct {
	Body   string    `yaml:"body"`
	Torque []float64 `yaml:"torque"`
}

// Mechanism is the top-level file schema.
type Mechanism struct {
	Gravity     []float64    `yaml:"gravity"`
	Bodies      []Body       `yaml:"bodies"`
	Constraints []Constraint `yaml:"constraints"`
	Torques     []Torque     `yaml:"torques"`
}

// Load reads and parses a mechanism file.
func Load(path string) (*Mechanism, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses YAML mechanism data.
func Parse(data []byte) (*Mechanism, error) {
	var m Mechanism
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the mechanism back out as YAML.
func Save(path string, m *Mechanism) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func vec3(v []float64) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := 0; i < len(v) && i < 3; i++ {
		out[i] = v[i]
	}
	return out
}

func (f Frame) transform() spatial.Transform {
	rot := mgl64.QuatIdent()
	if len(f.Axis) == 3 && f.Angle != 0 {
		rot = mgl64.QuatRotate(f.Angle, vec3(f.Axis).Normalize())
	}
	return spatial.NewTransform(rot, vec3(f.Position))
}

// Build constructs the System described by the file. The topology is left
// unfinalized so callers can add more elements before RealizeTopology.
func (m *Mechanism) Build() (*simbody.System, error) {
	sys := simbody.NewSystem()
	byName := map[string]simbody.BodyIndex{
		"":       simbody.Ground,
		"ground": simbody.Ground,
	}

	for _, b := range m.Bodies {
		if _, dup := byName[b.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBody, b.Name)
		}
		parent, ok := byName[b.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: parent %q of %q", ErrUnknownBodyName, b.Parent, b.Name)
		}
		mob := mobilizer.FromName(b.Joint)
		if mob == nil {
			return nil, fmt.Errorf("%w: %q on body %q", ErrUnknownJoint, b.Joint, b.Name)
		}
		mass := spatial.PointMass(b.Mass, b.Inertia)
		mass.COM = vec3(b.COM)
		ix, err := sys.AddBody(parent, mass, b.Inboard.transform(), b.Outboard.transform(), mob)
		if err != nil {
			return nil, err
		}
		byName[b.Name] = ix
	}

	resolve := func(name string) (simbody.BodyIndex, error) {
		ix, ok := byName[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownBodyName, name)
		}
		return ix, nil
	}

	for _, c := range m.Constraints {
		var (
			con constraint.Constraint
			err error
		)
		switch c.Type {
		case "ball":
			var b1, b2 simbody.BodyIndex
			if b1, err = resolve(c.Body1); err == nil {
				if b2, err = resolve(c.Body2); err == nil {
					con = constraint.NewBall(b1, vec3(c.Point1), b2, vec3(c.Point2))
				}
			}
		case "rod":
			var b1, b2 simbody.BodyIndex
			if b1, err = resolve(c.Body1); err == nil {
				if b2, err = resolve(c.Body2); err == nil {
					con = constraint.NewRod(b1, vec3(c.Point1), b2, vec3(c.Point2), c.Length)
				}
			}
		case "orientation":
			var b1, b2 simbody.BodyIndex
			if b1, err = resolve(c.Body1); err == nil {
				if b2, err = resolve(c.Body2); err == nil {
					con = constraint.NewConstantOrientation(
						b1, c.Frame1.transform().Rotation,
						b2, c.Frame2.transform().Rotation)
				}
			}
		case "speed":
			var b simbody.BodyIndex
			if b, err = resolve(c.Body); err == nil {
				con = constraint.NewConstantSpeed(b, c.Dof, c.Speed)
			}
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownConstraint, c.Type)
		}
		if err != nil {
			return nil, err
		}
		if _, err := sys.AddConstraint(con); err != nil {
			return nil, err
		}
	}

	if len(m.Gravity) == 3 {
		if err := sys.AddForce(simbody.NewUniformGravity(vec3(m.Gravity))); err != nil {
			return nil, err
		}
	}
	for _, t := range m.Torques {
		b, err := resolve(t.Body)
		if err != nil {
			return nil, err
		}
		if err := sys.AddForce(simbody.NewConstantTorque(b, vec3(t.Torque))); err != nil {
			return nil, err
		}
	}
	return sys, nil
}
