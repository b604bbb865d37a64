// Package routes classifies the name after /json/ in a GET request.
//
// Names are hashed with a 16-bit djb2 and compared against a fixed table of
// precomputed hashes, so a lookup costs one pass over the name and one
// string compare. The table is collision free; routes_test.go proves it.
package routes

// Route is the dispatch tag of a known /json/ endpoint.
type Route uint8

const (
	None Route = iota
	List
	Version
	Uptime
	Display
	Directory
	PhyStatus
	RTC
	DMXPorts
	DMXStatus
	RDMPorts
	RDMQueue
	RDMTOD
	StorageDirectory
	PixelType
	ShowfileStatus
	ShowfileDirectory
)

// Hashes of the route names, see Hash.
const (
	hashList              uint16 = 0x1661
	hashVersion           uint16 = 0x6C4B
	hashUptime            uint16 = 0xB7D9
	hashDisplay           uint16 = 0x479B
	hashDirectory         uint16 = 0x11FA
	hashPhyStatus         uint16 = 0xB63A
	hashRTC               uint16 = 0xA72E
	hashDMXPorts          uint16 = 0xCDB5
	hashDMXStatus         uint16 = 0x2701
	hashRDMPorts          uint16 = 0xE38F
	hashRDMQueue          uint16 = 0x0F1C
	hashRDMTOD            uint16 = 0xBB1E
	hashStorageDirectory  uint16 = 0x2B5E
	hashPixelType         uint16 = 0xD149
	hashShowfileStatus    uint16 = 0x8819
	hashShowfileDirectory uint16 = 0xDACA
)

type entry struct {
	hash  uint16
	name  string
	route Route
}

var table = [...]entry{
	{hashList, "list", List},
	{hashVersion, "version", Version},
	{hashUptime, "uptime", Uptime},
	{hashDisplay, "display", Display},
	{hashDirectory, "directory", Directory},
	{hashPhyStatus, "phystatus", PhyStatus},
	{hashRTC, "rtc", RTC},
	{hashDMXPorts, "dmx/ports", DMXPorts},
	{hashDMXStatus, "dmx/status", DMXStatus},
	{hashRDMPorts, "rdm/ports", RDMPorts},
	{hashRDMQueue, "rdm/queue", RDMQueue},
	{hashRDMTOD, "rdm/tod", RDMTOD},
	{hashStorageDirectory, "storage/directory", StorageDirectory},
	{hashPixelType, "pixeltype", PixelType},
	{hashShowfileStatus, "showfile/status", ShowfileStatus},
	{hashShowfileDirectory, "showfile/directory", ShowfileDirectory},
}

// Hash is djb2 truncated to 16 bits after every step.
func Hash(s string) uint16 {
	h := uint16(5381)
	for i := 0; i < len(s); i++ {
		h = h*33 + uint16(s[i])
	}
	return h
}

// Lookup returns the route for name. A name whose hash matches a table
// entry but whose text does not is reported as unknown.
func Lookup(name string) (Route, bool) {
	h := Hash(name)
	for i := range table {
		if table[i].hash == h {
			if table[i].name != name {
				return None, false
			}
			return table[i].route, true
		}
	}
	return None, false
}

// All returns every known route in table order.
func All() []Route {
	out := make([]Route, len(table))
	for i := range table {
		out[i] = table[i].route
	}
	return out
}

// String returns the route name as it appears after /json/.
func (r Route) String() string {
	for i := range table {
		if table[i].route == r {
			return table[i].name
		}
	}
	return "none"
}
