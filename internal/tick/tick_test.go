package tick

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/condatools/feedtick/internal/common/config"
	"github.com/condatools/feedtick/internal/forge"
	"github.com/condatools/feedtick/internal/pypi"
	"github.com/condatools/feedtick/internal/regen"
)

// feedstockFixture describes one feedstock the fake hosts serve: its recipe
// on GitHub and its release data on PyPI.
type feedstockFixture struct {
	name       string // repo name, e.g. "pyyaml-feedstock"
	sourceName string // case-preserving archive name, e.g. "PyYAML"
	version    string
	latest     string
	digest     string // sha256 served for the latest release
	deps       []string
	blobSHA    string
	recipe     string // overrides the generated recipe when set
}

// capturedPut is one recorded contents write.
type capturedPut struct {
	owner, repo string
	message     string
	content     string
	sha         string
	branch      string
}

// tickFixture wires fake GitHub and PyPI servers around a Runner. Response
// fields configure the hosts; the remaining fields record what a run did.
type tickFixture struct {
	t *testing.T

	feedstocks []feedstockFixture
	comparison forge.Comparison
	hasFork    map[string]bool
	openPull   map[string]bool
	putStatus  int

	regen *regen.MockRegenerator

	puts         []capturedPut
	deletedForks []string
	createdForks []string
	comparePaths []string
	newPulls     []forge.NewPull
}

func newTickFixture(t *testing.T, feedstocks ...feedstockFixture) *tickFixture {
	return &tickFixture{
		t:          t,
		feedstocks: feedstocks,
		hasFork:    make(map[string]bool),
		openPull:   make(map[string]bool),
		regen:      &regen.MockRegenerator{},
	}
}

// recipeText returns the fixture's recipe, generating a plain one from its
// fields unless an override is set.
func (fs *feedstockFixture) recipeText() string {
	if fs.recipe != "" {
		return fs.recipe
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package:\n  name: %s\n  version: \"%s\"\n\n",
		strings.ToLower(fs.sourceName), fs.version)
	fmt.Fprintf(&b, "source:\n  fn: %s-%s.tar.gz\n  sha256: %s\n\n",
		fs.sourceName, fs.version, fs.oldDigest())
	b.WriteString("requirements:\n  build:\n    - python\n    - setuptools\n  run:\n    - python\n")
	for _, d := range fs.deps {
		fmt.Fprintf(&b, "    - %s\n", d)
	}
	return b.String()
}

func (fs *feedstockFixture) oldDigest() string {
	return "0ld" + strings.ToLower(fs.sourceName) + "da7a"
}

func (fs *feedstockFixture) blob() string {
	if fs.blobSHA != "" {
		return fs.blobSHA
	}
	return "blob-" + fs.name
}

// github starts the fake GitHub host covering every endpoint a run touches.
func (f *tickFixture) github() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"login": "octocat"})
	})

	mux.HandleFunc("/user/teams", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(w, []forge.Team{})
			return
		}
		teams := []forge.Team{
			// Infrastructure team, filtered out by its repo count
			{ID: 999, Name: "core", ReposCount: 2},
		}
		for i, fs := range f.feedstocks {
			teams = append(teams, forge.Team{
				ID:         int64(i + 1),
				Name:       strings.TrimSuffix(fs.name, "-feedstock"),
				ReposCount: 1,
			})
		}
		writeJSON(w, teams)
	})

	for i := range f.feedstocks {
		f.registerFeedstock(mux, int64(i+1), &f.feedstocks[i])
	}

	server := httptest.NewServer(mux)
	f.t.Cleanup(server.Close)
	return server
}

func (f *tickFixture) registerFeedstock(mux *http.ServeMux, teamID int64, fs *feedstockFixture) {
	upstream := "conda-forge/" + fs.name

	mux.HandleFunc(fmt.Sprintf("/teams/%d/repos", teamID), func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(w, []forge.Repo{})
			return
		}
		writeJSON(w, []forge.Repo{{Name: fs.name, FullName: upstream, DefaultBranch: "master"}})
	})

	mux.HandleFunc("/repos/"+upstream+"/contents/recipe/meta.yaml", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"path":     "recipe/meta.yaml",
			"sha":      fs.blob(),
			"content":  base64.StdEncoding.EncodeToString([]byte(fs.recipeText())) + "\n",
			"encoding": "base64",
		})
	})

	mux.HandleFunc("/repos/"+upstream+"/forks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("page") != "1" || !f.hasFork[fs.name] {
				writeJSON(w, []forge.Repo{})
				return
			}
			writeJSON(w, []forge.Repo{f.forkRepo(fs)})
		case http.MethodPost:
			f.createdForks = append(f.createdForks, fs.name)
			w.WriteHeader(http.StatusAccepted)
			writeJSON(w, f.forkRepo(fs))
		default:
			f.t.Errorf("Unexpected method %s on forks endpoint", r.Method)
		}
	})

	mux.HandleFunc("/repos/"+upstream+"/pulls", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("page") != "1" || !f.openPull[fs.name] {
				writeJSON(w, []forge.Pull{})
				return
			}
			pull := forge.Pull{Number: 8, State: "open"}
			pull.User.Login = "octocat"
			pull.Head.Label = "octocat:master"
			writeJSON(w, []forge.Pull{pull})
		case http.MethodPost:
			var payload forge.NewPull
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				f.t.Fatalf("Failed to decode pull payload: %v", err)
			}
			f.newPulls = append(f.newPulls, payload)
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, forge.Pull{Number: len(f.newPulls), State: "open",
				HTMLURL: "https://github.com/" + upstream + "/pull/1"})
		default:
			f.t.Errorf("Unexpected method %s on pulls endpoint", r.Method)
		}
	})

	mux.HandleFunc("/repos/octocat/"+fs.name+"/compare/", func(w http.ResponseWriter, r *http.Request) {
		f.comparePaths = append(f.comparePaths, r.URL.Path)
		writeJSON(w, f.comparison)
	})

	mux.HandleFunc("/repos/octocat/"+fs.name+"/contents/recipe/meta.yaml", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			f.t.Errorf("Expected PUT on fork contents, got %s", r.Method)
			return
		}
		var payload struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			f.t.Fatalf("Failed to decode contents payload: %v", err)
		}
		if f.putStatus != 0 {
			w.WriteHeader(f.putStatus)
			fmt.Fprint(w, `{"message":"does not match"}`)
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(payload.Content)
		if err != nil {
			f.t.Fatalf("Contents payload is not base64: %v", err)
		}
		f.puts = append(f.puts, capturedPut{
			owner:   "octocat",
			repo:    fs.name,
			message: payload.Message,
			content: string(decoded),
			sha:     payload.SHA,
			branch:  payload.Branch,
		})
		writeJSON(w, map[string]string{})
	})

	mux.HandleFunc("/repos/octocat/"+fs.name, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			f.t.Errorf("Expected DELETE on fork repo, got %s", r.Method)
			return
		}
		f.deletedForks = append(f.deletedForks, fs.name)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (f *tickFixture) forkRepo(fs *feedstockFixture) forge.Repo {
	fork := forge.Repo{
		Name:          fs.name,
		FullName:      "octocat/" + fs.name,
		DefaultBranch: "master",
		Fork:          true,
		CloneURL:      "https://github.com/octocat/" + fs.name + ".git",
	}
	fork.Owner.Login = "octocat"
	return fork
}

// index starts the fake PyPI host: one JSON document per feedstock under
// both the lowercase and the case-preserving name, no release pages.
func (f *tickFixture) index() *httptest.Server {
	mux := http.NewServeMux()

	for i := range f.feedstocks {
		fs := &f.feedstocks[i]

		doc := map[string]interface{}{
			"info": map[string]string{"version": fs.latest},
			"releases": map[string]interface{}{
				fs.latest: []map[string]interface{}{
					{
						"filename": fmt.Sprintf("%s-%s.tar.gz", fs.sourceName, fs.latest),
						"digests":  map[string]string{"sha256": fs.digest},
					},
				},
			},
		}

		handler := func(w http.ResponseWriter, r *http.Request) { writeJSON(w, doc) }
		lower := strings.ToLower(fs.sourceName)
		mux.HandleFunc("/pypi/"+lower+"/json", handler)
		if fs.sourceName != lower {
			mux.HandleFunc("/pypi/"+fs.sourceName+"/json", handler)
		}
	}

	server := httptest.NewServer(mux)
	f.t.Cleanup(server.Close)
	return server
}

// runner wires the fixture's servers into a Runner ready to Scan or Run.
func (f *tickFixture) runner(opts ...Option) *Runner {
	gh := f.github()
	py := f.index()

	cfg := &config.Config{}
	cfg.GitHub.APIURL = gh.URL
	cfg.GitHub.Org = config.DefaultOrg
	cfg.GitHub.Branch = config.DefaultBranch
	cfg.Index.APIURL = py.URL + "/pypi"
	cfg.Index.PageURL = py.URL + "/project"

	base := []Option{
		WithForgeClient(forge.NewClient(gh.URL, "t0ken")),
		WithIndexClient(pypi.NewClient(cfg.Index.APIURL, cfg.Index.PageURL)),
		WithRegenerator(f.regen),
	}
	return NewRunner(cfg, "t0ken", append(base, opts...)...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// pyyamlFixture is the standard out-of-date feedstock used across tests.
func pyyamlFixture() feedstockFixture {
	return feedstockFixture{
		name:       "pyyaml-feedstock",
		sourceName: "PyYAML",
		version:    "1.10.0",
		latest:     "1.11.0",
		digest:     "new5ha256d1ge5t",
	}
}
