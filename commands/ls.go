package commands

import (
	"bufio"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	fcolor "github.com/fatih/color"
	"github.com/josephlewis42/vsh/core/vos"
	getopt "github.com/pborman/getopt/v2"
)

// defaultWidth is the line width when COLUMNS isn't set.
const defaultWidth = 80

// Ls implements the UNIX ls command.
func Ls(virtOS vos.VOS) int {
	width := defaultWidth
	if cols, err := strconv.Atoi(virtOS.Getenv("COLUMNS")); err == nil && cols >= 0 {
		width = cols
	}

	opts := getopt.New()
	listAll := opts.Bool('a', "don't ignore entries starting with .")
	longListing := opts.Bool('l', "use a long listing format")
	onePerLine := opts.Bool('1', "list one file per line")
	humanSize := opts.BoolLong("human-readable", 'h', "print human readable sizes")
	lineWidth := opts.IntLong("width", 'w', width, "set the column width, 0 is infinite")
	helpOpt := opts.BoolLong("help", '?', "show help and exit")

	var color ColorPrinter
	color.Init(opts, virtOS)

	if err := opts.Getopt(virtOS.Args(), nil); err != nil || *helpOpt {
		w := virtOS.Stderr()
		code := 2
		if err != nil {
			fmt.Fprintln(w, err)
		} else {
			w, code = virtOS.Stdout(), 0
		}
		fmt.Fprintln(w, "Usage: ls [OPTION]... [FILE]...")
		fmt.Fprintln(w, "List information about the FILEs (the current directory by default).")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		opts.PrintOptions(w)
		return code
	}

	// Initialize arguments
	directoriesToList := opts.Args()
	if len(directoriesToList) == 0 {
		directoriesToList = append(directoriesToList, ".")
	}
	sort.Strings(directoriesToList)

	showDirectoryNames := len(directoriesToList) > 1

	sizeFmt := func(bytes int64) string {
		return fmt.Sprintf("%d", bytes)
	}
	if *humanSize {
		sizeFmt = BytesToHuman
	}

	if *lineWidth == 0 {
		*lineWidth = math.MaxInt32
	}
	if *onePerLine {
		*lineWidth = 1
	}

	owners := newOwnerResolver(virtOS)

	exitCode := 0
	w := virtOS.Stdout()

	for i, directory := range directoriesToList {
		paths, err := listPaths(virtOS, directory, *listAll)
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "ls: cannot access %q: %s\n", directory, errText(err))
			exitCode = 2
			continue
		}

		if showDirectoryNames {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s:\n", directory)
		}

		if *longListing {
			var totalSize int64
			for _, f := range paths {
				totalSize += f.Size()
			}
			fmt.Fprintf(w, "total %s\n", sizeFmt(totalSize))

			tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
			currentYear := time.Now().Year()
			for _, f := range paths {
				hardLinks := 1
				if f.IsDir() {
					hardLinks = 2
				}

				// Include time if current year.
				modTime := f.ModTime().Format("Jan _2  2006")
				if f.ModTime().Year() >= currentYear {
					modTime = f.ModTime().Format("Jan _2 15:04")
				}

				user, group := owners.owner(f)
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					f.Mode().String(),
					hardLinks,
					user,
					group,
					sizeFmt(f.Size()),
					modTime,
					color.Sprint(Dircolor(f), f.Name()))
			}
			tw.Flush()
			continue
		}

		colWidths := columnize(paths, *lineWidth)
		cols := len(colWidths)
		rows := len(paths) / cols
		if len(paths)%cols > 0 {
			rows++
		}

		for row := 0; row < rows; row++ {
			var line strings.Builder
			for col, width := range colWidths {
				index := (col * rows) + row
				if index >= len(paths) {
					break
				}
				// Add padding if there was a column before this.
				if col > 0 {
					line.WriteString("  ")
				}
				entry := paths[index]
				line.WriteString(color.Sprint(Dircolor(entry), entry.Name()))
				// Pad for alignment unless it's the last column.
				if col < cols-1 && index+rows < len(paths) {
					line.WriteString(strings.Repeat(" ", width-len(entry.Name())))
				}
			}
			fmt.Fprintln(w, line.String())
		}
	}

	return exitCode
}

// listPaths returns the sorted entries of a directory or the file itself.
func listPaths(virtOS vos.VOS, name string, all bool) ([]os.FileInfo, error) {
	stat, err := virtOS.Stat(name)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return []os.FileInfo{renamedFileInfo{stat, name}}, nil
	}

	file, err := virtOS.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	allPaths, err := file.Readdir(-1)
	if err != nil {
		return nil, err
	}

	var paths []os.FileInfo
	for _, p := range allPaths {
		if !all && strings.HasPrefix(p.Name(), ".") {
			continue
		}
		paths = append(paths, p)
	}

	sort.Slice(paths, func(i int, j int) bool {
		return paths[i].Name() < paths[j].Name()
	})
	return paths, nil
}

// renamedFileInfo reports a file under the name it was listed with.
type renamedFileInfo struct {
	os.FileInfo
	name string
}

func (r renamedFileInfo) Name() string {
	return r.name
}

type LsColorTest struct {
	color *fcolor.Color
	test  func(fileInfo os.FileInfo) bool
}

// Color listing comes from: https://askubuntu.com/a/884513
var dircolors = []LsColorTest{
	// Directories are bold blue.
	{color: ColorBoldBlue, test: os.FileInfo.IsDir},
	// Symlinks are bold cyan.
	{color: ColorBoldCyan, test: func(fi os.FileInfo) bool {
		return fi.Mode()&fs.ModeSymlink > 0
	}},
	// Yellow with black background pipe, block device, char device.
	{color: fcolor.New(fcolor.FgYellow, fcolor.BgBlack, fcolor.Bold), test: func(fi os.FileInfo) bool {
		return fi.Mode()&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeCharDevice) > 0
	}},
	// Executables are bold green.
	{color: ColorBoldGreen, test: func(fi os.FileInfo) bool {
		return fi.Mode().Perm()&0111 > 0
	}},
	// Archives are bold red.
	{color: ColorBoldRed, test: func(fi os.FileInfo) bool {
		switch strings.TrimPrefix(path.Ext(fi.Name()), ".") {
		case "tar", "tgz", "zip", "gz", "bz2", "bz", "tbz", "deb", "rpm", "jar", "war", "rar":
			return true
		}
		return false
	}},
}

var plainColor = fcolor.New(fcolor.Reset)

func init() {
	plainColor.EnableColor()
}

func Dircolor(fileInfo os.FileInfo) *fcolor.Color {
	for _, dc := range dircolors {
		if dc.test(fileInfo) {
			return dc.color
		}
	}

	return plainColor
}

// columnize returns the widths of the columns needed to fit the names of
// paths, listed down then across, in screenWidth.
func columnize(paths []fs.FileInfo, screenWidth int) []int {
	numFiles := len(paths)
	if numFiles == 0 {
		return []int{0}
	}

	const colPadding = 2

	// Size of the display of the file name, actual length may vary if there are
	// escape sequences to format it.
	displayLengths := make([]int, len(paths))
	for i, p := range paths {
		displayLengths[i] = len(p.Name())
	}

	// Start with maximum number of columns and work down until all the data fits.
	// 3 is the minimum column width, 1 char filename + 2 padding.
	columns := screenWidth / (1 + colPadding)
	if columns > numFiles {
		columns = numFiles
	}

	for ; columns > 1; columns-- {
		rows := (numFiles + columns - 1) / columns
		// Fewer rows than needed means the last columns are empty.
		if (columns-1)*rows >= numFiles {
			continue
		}

		maximums := make([]int, columns)
		for i, nameLen := range displayLengths {
			if nameLen > maximums[i/rows] {
				maximums[i/rows] = nameLen
			}
		}

		total := (columns - 1) * colPadding
		for _, m := range maximums {
			total += m
		}
		if total <= screenWidth {
			return maximums
		}
	}

	longest := 0
	for _, l := range displayLengths {
		if l > longest {
			longest = l
		}
	}
	return []int{longest}
}

// ownerResolver names the owners of files from /etc/passwd and /etc/group.
// Files without ownership information belong to the session's user.
type ownerResolver struct {
	users  map[int]string
	groups map[int]string
	user   string
}

func newOwnerResolver(virtOS vos.VOS) *ownerResolver {
	user := virtOS.Getenv("USER")
	if user == "" {
		user = "root"
	}
	return &ownerResolver{
		users:  readIDFile(virtOS, "/etc/passwd"),
		groups: readIDFile(virtOS, "/etc/group"),
		user:   user,
	}
}

// readIDFile reads the name:x:id: entries of a passwd style file.
func readIDFile(virtOS vos.VOS, name string) map[int]string {
	mapping := map[int]string{
		0: "root", // seed in case we don't see any others.
	}

	fd, err := virtOS.Open(name)
	if err != nil {
		return mapping
	}
	defer fd.Close()

	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		entry := strings.Split(scanner.Text(), ":")
		if len(entry) < 3 {
			continue
		}
		if id, err := strconv.Atoi(entry[2]); err == nil {
			mapping[id] = entry[0]
		}
	}
	return mapping
}

func (o *ownerResolver) owner(fileInfo os.FileInfo) (user, group string) {
	stat, ok := fileInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return o.user, o.user
	}
	return lookupID(o.users, int(stat.Uid)), lookupID(o.groups, int(stat.Gid))
}

func lookupID(mapping map[int]string, id int) string {
	if name, ok := mapping[id]; ok {
		return name
	}
	return strconv.Itoa(id)
}

var _ vos.ProcessFunc = Ls

func init() {
	mustAddBinCmd("ls", Ls)
}
