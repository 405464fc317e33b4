package main

import (
	"fmt"

	"github.com/webitel/actorcluster/cmd/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
