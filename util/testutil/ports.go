package testutil

import (
	"net"
	"strconv"
	"sync"
)

var (
	mutex sync.Mutex
	port  = 40000
)

// GenTestPorts returns n local ports that are not in use, ports are never
// returned twice in one process
func GenTestPorts(n int) []int {
	mutex.Lock()
	defer mutex.Unlock()

	ports := make([]int, 0, n)
	for len(ports) < n {
		port++
		l, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err != nil {
			continue
		}
		l.Close()
		ports = append(ports, port)
	}
	return ports
}
