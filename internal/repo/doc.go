// Package repo fetches remote repositories for ingestion.
//
// GitSource shells out to the git CLI, which already knows every host and
// credential helper the user has configured. Each fetch gets its own
// directory so concurrent fetches never collide:
//
//	src := repo.NewGitSource("/tmp/repo_data")
//	dir, err := src.Fetch(ctx, "https://github.com/acme/widgets.git")
//	if err != nil {
//	    var fe *repo.FetchError
//	    errors.As(err, &fe)
//	}
//	defer src.Cleanup(dir)
package repo
