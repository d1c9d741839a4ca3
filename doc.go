/*
Package comfygraph is a client for ComfyUI-compatible node-graph
image-generation servers.

Callers load a workflow graph (the server's native "API format" JSON), adjust
the parameters they care about without understanding the graph's topology, and
stream back the resulting images as they complete:

	client, err := comfygraph.New("http://localhost:8188")
	if err != nil {
		log.Fatal(err)
	}

	graph, err := workflow.Parse(raw)
	if err != nil {
		log.Fatal(err)
	}
	if seed, err := graph.Seed(); err == nil {
		*seed = 42
	}

	images, err := client.Stream(ctx, graph)
	if err != nil {
		log.Fatal(err)
	}
	for out := range images {
		if out.Err != nil {
			log.Fatal(out.Err)
		}
		os.WriteFile(out.Node+".png", out.Image, 0o644)
	}

The heavy lifting lives in two places: pkg/workflow resolves semantic
parameters (prompt text, seed, model, size, ...) inside an arbitrary graph by
walking its dependency edges, and the internal tracker reconciles live push
notifications with the server's history record so that images produced from
cache, which never generate notifications, are still delivered exactly once.
*/
package comfygraph
