package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

func printScripts() {
	keys := make([]string, 0, len(scriptMap))
	for key := range scriptMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Println("Scripts:")
	for _, key := range keys {
		fmt.Println("\t" + key)
	}
}

func main() {
	flag.Parse()

	script := flag.Arg(0)
	fn, ok := scriptMap[script]
	if !ok {
		fmt.Printf(
			"you must specify a valid script, '%s' is not a valid script.\n",
			script,
		)
		printScripts()
		os.Exit(1)
	}

	fn()
}

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

var scriptMap = map[string]func(){
	"dev:sqlc":          generateQueries,
	"dev:migrate":       migrate,
	"dev:crawl":         crawl,
	"dev:reset_staging": resetStaging,
}

func generateQueries() {
	cmd("sqlc", "generate")
}

func crawl() {
	cmd("go", "run", "./cmd/courserank", "crawl", "directory")
	cmd("go", "run", "./cmd/courserank", "crawl", "comments")
}

func migrate() {
	cmd("go", "run", "./cmd/courserank", "catalog", "fetch")
	cmd("go", "run", "./cmd/courserank", "migrate")
}

func resetStaging() {
	err := os.Remove("dev/.state/staging.db")
	if err != nil && !os.IsNotExist(err) {
		fmt.Println(err)
		os.Exit(1)
	}
	cmd("go", "run", "./dev", "-no-stack")
}
