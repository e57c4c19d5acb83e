package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"image-resize-ai/internal/app"
	"image-resize-ai/internal/params"
)

// Transform flags
var (
	paramFlags []string
	tokenFlag  string
)

var transformCmd = &cobra.Command{
	Use:   "transform <asset>",
	Short: "Build (or fetch from cache) a transformed image and print its descriptor",
	Long: `Transform an image with the same parameters the /media/ endpoint accepts,
given as --param key=value, or with an opaque --token. Prints the artifact
path, URL, MIME type, size and cache key.`,
	Args: cobra.ExactArgs(1),
	RunE: runTransform,
}

func init() {
	f := transformCmd.Flags()
	f.StringArrayVar(&paramFlags, "param", nil, "Transform parameter as key=value (repeatable)")
	f.StringVar(&tokenFlag, "token", "", "Opaque parameter token instead of --param")
}

func runTransform(cmd *cobra.Command, args []string) error {
	rawPath, rawQuery, err := transformRequest(args[0], paramFlags, tokenFlag)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, app.Options{Vips: true})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Engine.HandleRaw(cmd.Context(), rawPath, rawQuery)
	if err != nil {
		return err
	}
	printJSON(os.Stdout, res, prettyFlag)
	return nil
}

// transformRequest turns the command line into the path and query the
// /media/ endpoint would receive.
func transformRequest(asset string, kv []string, token string) (string, string, error) {
	if token != "" && len(kv) > 0 {
		return "", "", fmt.Errorf("--token and --param are mutually exclusive")
	}
	if token != "" {
		return params.TokenPrefix + token + "/" + strings.TrimPrefix(asset, "/"), "", nil
	}

	q := url.Values{}
	for _, p := range kv {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return "", "", fmt.Errorf("invalid --param %q, want key=value", p)
		}
		q.Add(strings.TrimSpace(key), value)
	}
	return asset, q.Encode(), nil
}
