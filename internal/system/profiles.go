package system

import "github.com/foundry-zero/purec/internal/graph"

var systemProfiles = []struct {
	pkg, name   string
	stereotypes []string
	tags        []string
}{
	{"meta::pure::profiles", "temporal", []string{"businesstemporal", "processingtemporal", "bitemporal"}, nil},
	{"meta::pure::profiles", "milestoning", []string{graph.GeneratedMilestoningDateProperty, graph.GeneratedMilestoningProperty}, nil},
	{"meta::pure::profiles", "doc", []string{"deprecated"}, []string{"doc", "todo"}},
	{"meta::pure::profiles", "equality", []string{"Key"}, nil},
	{"meta::pure::profiles", "typemodifiers", []string{"abstract"}, nil},
	{"meta::pure::profiles", "access", []string{"private", "protected", "public", "externalizable"}, nil},
	{"meta::pure::profiles", "test", []string{"Test", "BeforePackage", "AfterPackage", "ToFix", "ExcludeAlloy"}, nil},
}

func (g *Graph) buildProfiles() {
	for _, def := range systemProfiles {
		p := &graph.Profile{}
		p.Name = def.name
		for _, v := range def.stereotypes {
			p.Stereotypes = append(p.Stereotypes, &graph.Stereotype{Value: v, Profile: p})
		}
		for _, v := range def.tags {
			p.Tags = append(p.Tags, &graph.Tag{Value: v, Profile: p})
		}
		g.register(def.pkg, p)
	}
	g.TemporalProfile, _ = g.Profile(graph.TemporalProfile)
	g.MilestoningProfile, _ = g.Profile(graph.MilestoningProfile)
}
