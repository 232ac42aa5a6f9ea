package region

// City is a canonical city of the target region with approximate coordinates
type City struct {
	Name string
	Lat  float64
	Lon  float64
}

// Cities is the curated list of known cities. Names are chosen so that no
// folded name is a substring of another.
var Cities = []City{
	{"Campo Grande", -20.4697, -54.6201},
	{"Dourados", -22.2231, -54.8120},
	{"Três Lagoas", -20.7849, -51.7007},
	{"Corumbá", -19.0077, -57.6511},
	{"Ponta Porã", -22.5296, -55.7203},
	{"Naviraí", -23.0650, -54.1907},
	{"Nova Andradina", -22.2332, -53.3437},
	{"Aquidauana", -20.4666, -55.7868},
	{"Sidrolândia", -20.9302, -54.9692},
	{"Maracaju", -21.6105, -55.1678},
	{"Paranaíba", -19.6746, -51.1909},
	{"Rio Brilhante", -21.8033, -54.5427},
	{"Coxim", -18.5013, -54.7603},
	{"Amambai", -23.1058, -55.2253},
	{"Caarapó", -22.6368, -54.8209},
	{"Chapadão do Sul", -18.7880, -52.6263},
	{"São Gabriel do Oeste", -19.3950, -54.5507},
	{"Jardim", -21.4799, -56.1489},
	{"Aparecida do Taboado", -20.0873, -51.0961},
	{"Ribas do Rio Pardo", -20.4445, -53.7588},
	{"Bonito", -21.1261, -56.4836},
	{"Miranda", -20.2422, -56.3780},
	{"Cassilândia", -19.1179, -51.7313},
	{"Ivinhema", -22.3046, -53.8185},
	{"Anastácio", -20.4823, -55.8104},
	{"Costa Rica", -18.5432, -53.1287},
	{"Bela Vista", -22.1073, -56.5263},
	{"Nova Alvorada do Sul", -21.4657, -54.3825},
	{"Água Clara", -20.4452, -52.8790},
	{"Iguatemi", -23.6736, -54.5637},
	{"Itaquiraí", -23.4779, -54.1870},
	{"Terenos", -20.4378, -54.8647},
	{"Inocência", -19.7277, -51.9281},
	{"Bataguassu", -21.7159, -52.4221},
	{"Fátima do Sul", -22.3789, -54.5131},
}

// RemoteIndicators are folded substrings that mark a posting as remote work
var RemoteIndicators = []string{
	"remoto",
	"remota",
	"remote",
	"home office",
	"homeoffice",
	"hibrido",
	"hibrida",
	"hybrid",
	"teletrabalho",
	"trabalho a distancia",
}

// Coordinates returns the coordinates of a canonical city name
func Coordinates(name string) (lat, lon float64, ok bool) {
	folded := Fold(name)
	for _, c := range Cities {
		if Fold(c.Name) == folded {
			return c.Lat, c.Lon, true
		}
	}
	return 0, 0, false
}
